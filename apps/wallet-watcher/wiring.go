package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/checkpoint"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/sink"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/source"
)

const syntheticRPC = "synthetic"

func openStore(ctx context.Context, cfg Config) (checkpoint.Store, error) {
	switch cfg.CheckpointBackend {
	case "file":
		return checkpoint.NewFile(cfg.StatePath, cfg.Address), nil
	case "sqlite":
		return checkpoint.OpenSQLite(cfg.SQLitePath, cfg.Address)
	case "postgres":
		return checkpoint.NewPostgres(ctx, cfg.DatabaseURL, cfg.Address)
	case "none":
		return checkpoint.Nop{}, nil
	}
	return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.CheckpointBackend)
}

func newSource(cfg Config) (source.Source, error) {
	if cfg.RPCURL == syntheticRPC {
		return source.NewSynthetic(cfg.Address), nil
	}
	return source.NewSolana(cfg.RPCURL, cfg.Address, cfg.RPCRPS)
}

// newSink returns the configured sink wrapped in retries, and a func releasing its resources.
func newSink(ctx context.Context, cfg Config, stdout io.Writer) (sink.Sink, func(), error) {
	var (
		s       sink.Sink
		closeFn = func() {}
	)
	switch cfg.Sink {
	case "console":
		s = sink.NewConsole(stdout)
	case "postgres":
		pg, err := sink.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres sink: %w", err)
		}
		s, closeFn = pg, pg.Close
	case "sqs":
		awsCfg := aws.NewConfig()
		if cfg.AWSRegion != "" {
			awsCfg = awsCfg.WithRegion(cfg.AWSRegion)
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create aws session: %w", err)
		}
		s = sink.NewSQS(sess, cfg.SQSQueueURL)
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
	return sink.WithRetry(s, cfg.SinkRetries, time.Second), closeFn, nil
}
