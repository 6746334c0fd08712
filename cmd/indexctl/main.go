// Command indexctl inspects and maintains indexlib tables.
//
//	indexctl --store ./table versions
//	indexctl --store s3://bucket/tables/t1 --ddb-table commits show 12
//	indexctl --store minio://localhost:9000/bucket/t1 vacuum --keep 3
package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/hupe1980/indexlib"
)

type globalOptions struct {
	Store     string `long:"store" short:"s" required:"true" description:"table location: a local path, s3://bucket/prefix or minio://endpoint/bucket/prefix"`
	DDBTable  string `long:"ddb-table" description:"DynamoDB table guarding version files on S3"`
	Region    string `long:"region" env:"AWS_REGION" description:"AWS region"`
	Endpoint  string `long:"endpoint" description:"custom S3 endpoint"`
	AccessKey string `long:"access-key" env:"INDEXCTL_ACCESS_KEY" description:"static access key"`
	SecretKey string `long:"secret-key" env:"INDEXCTL_SECRET_KEY" description:"static secret key"`
	Insecure  bool   `long:"insecure" description:"use plain HTTP for MinIO"`
	Verbose   bool   `long:"verbose" short:"v" description:"debug logging"`
}

var opts globalOptions

func logger() *indexlib.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return indexlib.NewTextLogger(level)
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)

	for _, c := range []struct {
		name, short, long string
		data              any
	}{
		{"versions", "List versions", "List the versions published in the table.", &versionsCommand{}},
		{"show", "Show a version", "Print a version file. Defaults to the latest version.", &showCommand{}},
		{"recover", "Recover a directory", "Reconcile segment directories with the last committed version.", &recoverCommand{}},
		{"vacuum", "Delete old versions", "Delete versions outside the retention policy and unreferenced segments.", &vacuumCommand{}},
	} {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			logger().Error("failed to register command", "command", c.name, "error", err)
			os.Exit(1)
		}
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
