package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// FileError points at one problem in an HCL config file.
type FileError struct {
	File    string
	Message string
	Line    int
	Column  int
}

func (e *FileError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

type fileConfig struct {
	Server   *serverBlock   `hcl:"server,block"`
	Storage  *storageBlock  `hcl:"storage,block"`
	Reporter *reporterBlock `hcl:"reporter,block"`
	Metrics  *metricsBlock  `hcl:"metrics,block"`
}

type serverBlock struct {
	Host         string `hcl:"host,optional"`
	Port         int    `hcl:"port,optional"`
	ReadTimeout  string `hcl:"read_timeout,optional"`
	WriteTimeout string `hcl:"write_timeout,optional"`
}

type storageBlock struct {
	Backend string       `hcl:"backend,optional"`
	File    *fileBlock   `hcl:"file,block"`
	Mongo   *mongoBlock  `hcl:"mongo,block"`
	SQLite  *sqliteBlock `hcl:"sqlite,block"`
	Redis   *redisBlock  `hcl:"redis,block"`
}

type fileBlock struct {
	Path string `hcl:"path,optional"`
}

type mongoBlock struct {
	URI        string `hcl:"uri,optional"`
	Database   string `hcl:"database,optional"`
	Collection string `hcl:"collection,optional"`
}

type sqliteBlock struct {
	Path string `hcl:"path,optional"`
}

type redisBlock struct {
	Addr     string `hcl:"addr,optional"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
	Key      string `hcl:"key,optional"`
}

type reporterBlock struct {
	Interval string `hcl:"interval,optional"`
}

type metricsBlock struct {
	Addr string `hcl:"addr,optional"`
}

func applyFile(cfg *Config, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return diagnosticsError(path, diags)
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(f.Body, nil, &fc); diags.HasErrors() {
		return diagnosticsError(path, diags)
	}

	if err := fc.merge(cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func diagnosticsError(path string, diags hcl.Diagnostics) error {
	var errs []error
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		fe := &FileError{
			File:    path,
			Message: diag.Summary,
		}
		if diag.Detail != "" {
			fe.Message = fmt.Sprintf("%s: %s", diag.Summary, diag.Detail)
		}
		if diag.Subject != nil {
			fe.Line = diag.Subject.Start.Line
			fe.Column = diag.Subject.Start.Column
		}
		errs = append(errs, fe)
	}
	return errors.Join(errs...)
}

// merge copies every attribute set in the file over cfg.
func (fc *fileConfig) merge(cfg *Config) error {
	var err error

	if s := fc.Server; s != nil {
		setString(&cfg.Server.Host, s.Host)
		setInt(&cfg.Server.Port, s.Port)
		if err = setDuration(&cfg.Server.ReadTimeout, s.ReadTimeout, "server.read_timeout"); err != nil {
			return err
		}
		if err = setDuration(&cfg.Server.WriteTimeout, s.WriteTimeout, "server.write_timeout"); err != nil {
			return err
		}
	}

	if s := fc.Storage; s != nil {
		setString(&cfg.Storage.Backend, s.Backend)
		if s.File != nil {
			setString(&cfg.Storage.File.Path, s.File.Path)
		}
		if s.Mongo != nil {
			setString(&cfg.Storage.Mongo.URI, s.Mongo.URI)
			setString(&cfg.Storage.Mongo.Database, s.Mongo.Database)
			setString(&cfg.Storage.Mongo.Collection, s.Mongo.Collection)
		}
		if s.SQLite != nil {
			setString(&cfg.Storage.SQLite.Path, s.SQLite.Path)
		}
		if s.Redis != nil {
			setString(&cfg.Storage.Redis.Addr, s.Redis.Addr)
			setString(&cfg.Storage.Redis.Password, s.Redis.Password)
			setInt(&cfg.Storage.Redis.DB, s.Redis.DB)
			setString(&cfg.Storage.Redis.Key, s.Redis.Key)
		}
	}

	if r := fc.Reporter; r != nil {
		if err = setDuration(&cfg.Reporter.Interval, r.Interval, "reporter.interval"); err != nil {
			return err
		}
	}

	if m := fc.Metrics; m != nil {
		setString(&cfg.Metrics.Addr, m.Addr)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, name string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
