package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/repository"
)

type JobRepositoryTestSuite struct {
	suite.Suite
	dir  string
	repo *JobRepository
	ctx  context.Context
}

func (suite *JobRepositoryTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	repo, err := NewJobRepository(filepath.Join(suite.dir, "data", DefaultFileName))
	require.NoError(suite.T(), err)
	suite.repo = repo
	suite.ctx = context.Background()
}

func (suite *JobRepositoryTestSuite) TestLoadMissingFile() {
	jobs, err := suite.repo.Load(suite.ctx)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), jobs)
}

func (suite *JobRepositoryTestSuite) TestLoadEmptyFile() {
	require.NoError(suite.T(), os.WriteFile(suite.repo.Path(), []byte("  \n"), 0644))

	jobs, err := suite.repo.Load(suite.ctx)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), jobs)
}

func (suite *JobRepositoryTestSuite) TestLoadMalformedFile() {
	require.NoError(suite.T(), os.WriteFile(suite.repo.Path(), []byte("{not json"), 0644))

	_, err := suite.repo.Load(suite.ctx)
	assert.ErrorIs(suite.T(), err, repository.ErrParse)
}

func (suite *JobRepositoryTestSuite) TestLoadUnknownStatus() {
	doc := `[{"id":1,"company":"Acme","role":"Eng","status":"Hired","timestamp":"2025-01-02T03:04:05Z"}]`
	require.NoError(suite.T(), os.WriteFile(suite.repo.Path(), []byte(doc), 0644))

	_, err := suite.repo.Load(suite.ctx)
	assert.ErrorIs(suite.T(), err, repository.ErrParse)
	assert.ErrorIs(suite.T(), err, entity.ErrUnknownStatus)
}

func (suite *JobRepositoryTestSuite) TestLoadMissingStatus() {
	doc := `[{"id":1,"company":"Acme","role":"Eng","timestamp":"2025-01-02T03:04:05Z"}]`
	require.NoError(suite.T(), os.WriteFile(suite.repo.Path(), []byte(doc), 0644))

	_, err := suite.repo.Load(suite.ctx)
	assert.ErrorIs(suite.T(), err, repository.ErrParse)
	assert.ErrorIs(suite.T(), err, entity.ErrUnknownStatus)
}

func (suite *JobRepositoryTestSuite) TestLoadMissingTimestamp() {
	doc := `[{"id":1,"company":"Acme","role":"Eng","status":"Applied"}]`
	require.NoError(suite.T(), os.WriteFile(suite.repo.Path(), []byte(doc), 0644))

	_, err := suite.repo.Load(suite.ctx)
	assert.ErrorIs(suite.T(), err, repository.ErrParse)
	assert.ErrorIs(suite.T(), err, entity.ErrMissingTimestamp)
}

func (suite *JobRepositoryTestSuite) TestRoundTrip() {
	at := time.Date(2025, 9, 9, 12, 30, 0, 123000000, time.UTC)
	a := entity.NewJob(1, "Acme", "Engineer", "Remote", "LinkedIn", at)
	b := entity.NewJob(2, "Globex", "PM", "", "", at.Add(time.Hour))
	b.Status = entity.JobStatusGhosted
	c := entity.Job{ID: 5, Company: "Initech", Role: "QA", Status: entity.JobStatusOffer, Timestamp: at}
	jobs := []entity.Job{a, b, c}

	require.NoError(suite.T(), suite.repo.Save(suite.ctx, jobs))

	loaded, err := suite.repo.Load(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), jobs, loaded)
}

func (suite *JobRepositoryTestSuite) TestSaveOverwrites() {
	at := time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(suite.T(), suite.repo.Save(suite.ctx, []entity.Job{entity.NewJob(1, "A", "R", "", "", at)}))
	require.NoError(suite.T(), suite.repo.Save(suite.ctx, nil))

	loaded, err := suite.repo.Load(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), loaded)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(suite.repo.Path()), "*.tmp"))
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), leftovers)
}

func (suite *JobRepositoryTestSuite) TestSaveToMissingDirectory() {
	require.NoError(suite.T(), os.RemoveAll(filepath.Dir(suite.repo.Path())))

	err := suite.repo.Save(suite.ctx, []entity.Job{})
	assert.ErrorIs(suite.T(), err, repository.ErrWrite)
}

func (suite *JobRepositoryTestSuite) TestLoadDirectoryIsReadError() {
	repo, err := NewJobRepository(suite.dir)
	require.NoError(suite.T(), err)

	_, err = repo.Load(suite.ctx)
	assert.ErrorIs(suite.T(), err, repository.ErrRead)
}

func TestJobRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(JobRepositoryTestSuite))
}

func TestNewJobRepository_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := NewJobRepository(filepath.Join(file, DefaultFileName))
	assert.Error(t, err)
}
