// Command binuuid mints UUIDs and converts them to and from the ordered
// 16-byte form stored in MySQL binary(16) and SQLite blob columns.
//
// Usage:
//
//	binuuid [-config file] [-dump] <command> [flags] [args]
//
// Commands:
//
//	new          mint UUIDs and print them with their stored form
//	encode       print the stored form of UUIDs
//	decode       print the UUIDs held by stored hex values
//	column-type  print the column definition for a dialect
//	migrate      create the clock sequence table
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/Lzww0608/binuuid"
	"github.com/Lzww0608/binuuid/clockseq"
	"github.com/Lzww0608/binuuid/dialect"
	"github.com/Lzww0608/binuuid/internal/config"
	"github.com/Lzww0608/binuuid/internal/database"
	"github.com/Lzww0608/binuuid/internal/logging"
	"github.com/Lzww0608/binuuid/nodeid"
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer

	text  *color.Color
	bytes *color.Color
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("binuuid", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "TOML configuration file")
	dump := fs.Bool("dump", false, "dump the loaded configuration to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: binuuid [-config file] [-dump] new|encode|decode|column-type|migrate [flags] [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(stderr, cfg.Level()),
		stdout: stdout,
		stderr: stderr,
		text:   color.New(color.FgGreen),
		bytes:  color.New(color.FgCyan),
	}
	if *dump {
		spew.Fdump(stderr, cfg)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "new":
		err = a.cmdNew(ctx, rest)
	case "encode":
		err = a.cmdEncode(rest)
	case "decode":
		err = a.cmdDecode(rest)
	case "column-type":
		err = a.cmdColumnType(rest)
	case "migrate":
		err = a.cmdMigrate(ctx)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		color.New(color.FgRed).Fprintln(stderr, "error:", err)
		return 1
	}
}

func (a *app) cmdNew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	n := fs.Int("n", 1, "number of UUIDs to mint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 1 {
		return fmt.Errorf("%w: -n must be positive", errUsage)
	}

	factory, stop, err := a.factory(ctx)
	if err != nil {
		return err
	}
	defer stop()

	for i := 0; i < *n; i++ {
		u, err := factory.New()
		if err != nil {
			return err
		}
		b, err := factory.Encode(u)
		if err != nil {
			return err
		}
		a.text.Fprint(a.stdout, u.String())
		fmt.Fprint(a.stdout, " ")
		a.bytes.Fprintln(a.stdout, b.Hex())
	}
	return nil
}

func (a *app) cmdEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	literal := fs.Bool("sql", false, "print X'...' literals")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: encode needs at least one UUID", errUsage)
	}

	factory := binuuid.NewFactory(binuuid.OrderedTimeCodec{}, nil)
	for _, s := range fs.Args() {
		b, err := factory.EncodeString(s)
		if err != nil {
			return err
		}
		out := b.Hex()
		if *literal {
			out = b.SQLLiteral()
		}
		a.bytes.Fprintln(a.stdout, out)
	}
	return nil
}

func (a *app) cmdDecode(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: decode needs at least one hex value", errUsage)
	}

	factory := binuuid.NewFactory(binuuid.OrderedTimeCodec{}, nil)
	for _, s := range args {
		s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(s, "X'"), "0x"), "'")
		b, err := binuuid.BinaryFromHex(s)
		if err != nil {
			return fmt.Errorf("%w: %q", err, s)
		}
		text, err := factory.DecodeString(b.Bytes())
		if err != nil {
			return err
		}
		a.text.Fprintln(a.stdout, text)
	}
	return nil
}

func (a *app) cmdColumnType(args []string) error {
	fs := flag.NewFlagSet("column-type", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	name := fs.String("dialect", a.cfg.Database.Dialect, "mysql or sqlite")
	nullable := fs.Bool("nullable", false, "allow NULL")
	unique := fs.Bool("unique", false, "add a unique constraint")
	primary := fs.Bool("primary", false, "make the column the primary key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g, err := dialect.NewGrammar(*name, a.cfg.Database.TablePrefix)
	if err != nil {
		return err
	}
	col := dialect.Column{Name: fs.Arg(0), Nullable: *nullable, Unique: *unique, PrimaryKey: *primary}

	var out string
	if col.Name == "" {
		out, err = g.TypeUUID(col)
	} else {
		out, err = g.ColumnDefinition(col)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, out)
	return nil
}

func (a *app) cmdMigrate(ctx context.Context) error {
	db, err := database.Open(a.cfg.Database, nil, a.logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := clockseq.NewStore(db).AutoMigrate(ctx); err != nil {
		return err
	}
	a.logger.Info().Str("dialect", a.cfg.Database.Dialect).Msg("clock sequence table ready")
	return nil
}

// factory builds the generator from the configured node source and, when
// enabled, the persisted clock sequence. stop releases the node registry.
func (a *app) factory(ctx context.Context) (*binuuid.Factory, func(), error) {
	stop := func() {}
	opts := []binuuid.Option{binuuid.WithVersion(binuuid.Version(a.cfg.Version))}

	var src nodeid.Source
	switch a.cfg.Node.Source {
	case config.NodeStatic:
		node, err := nodeid.ParseStatic(a.cfg.Node.Static)
		if err != nil {
			return nil, stop, err
		}
		src = node
	case config.NodeZooKeeper:
		zc := a.cfg.Node.ZooKeeper
		zk, err := nodeid.DialZooKeeper(nodeid.ZKConfig{
			Servers:        zc.Servers,
			Root:           zc.Root,
			Service:        zc.Service,
			Instance:       zc.Instance,
			CacheDir:       zc.CacheDir,
			SessionTimeout: zc.SessionTimeout.Duration,
		}, a.logger)
		if err != nil {
			return nil, stop, err
		}
		hbCtx, cancel := context.WithCancel(ctx)
		if zc.HeartbeatInterval.Duration > 0 {
			go zk.Heartbeat(hbCtx, zc.HeartbeatInterval.Duration)
		}
		stop = func() {
			cancel()
			zk.Close()
		}
		src = zk
	default:
		src = nodeid.Hardware{}
	}

	node, err := src.NodeID(ctx)
	if err != nil {
		stop()
		return nil, func() {}, err
	}
	opts = append(opts, binuuid.WithNodeID(node))

	if a.cfg.Database.PersistClockSequence && a.cfg.Version == int(binuuid.VersionTimeBased) {
		opt, err := a.clockSequence(ctx, node)
		if err != nil {
			stop()
			return nil, func() {}, err
		}
		opts = append(opts, opt)
	}

	a.logger.Debug().Hex("node", node[:]).Int("version", a.cfg.Version).Msg("generator ready")
	return binuuid.NewFactory(binuuid.OrderedTimeCodec{}, binuuid.NewGenerator(opts...)), stop, nil
}

func (a *app) clockSequence(ctx context.Context, node [6]byte) (binuuid.Option, error) {
	db, err := database.Open(a.cfg.Database, nil, a.logger)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := clockseq.NewStore(db)
	if err := store.AutoMigrate(ctx); err != nil {
		return nil, err
	}
	return store.Option(ctx, node)
}
