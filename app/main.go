package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/fileutils"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/antispam/app/filter"
	"github.com/umputun/antispam/app/storage"
	"github.com/umputun/antispam/app/storage/engine"
	"github.com/umputun/antispam/app/webapi"
	"github.com/umputun/antispam/lib/antispam"
)

type options struct {
	Store struct {
		Type       string        `long:"type" env:"TYPE" choice:"file" choice:"sqlite" choice:"postgres" choice:"redis" default:"file" description:"model store type"`
		Conn       string        `long:"conn" env:"CONN" default:"data/model.json" description:"model file, sqlite file or postgres/redis url"`
		GID        string        `long:"gid" env:"GID" default:"antispam" description:"model group id, separates models in one store"`
		Backup     bool          `long:"backup" env:"BACKUP" description:"keep previous model file as .bak on save (file store)"`
		Retries    int           `long:"retries" env:"RETRIES" default:"5" description:"connection attempts for postgres and redis"`
		RetryDelay time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"1s" description:"delay between connection attempts"`
	} `group:"store" namespace:"store" env-namespace:"STORE"`

	Logger struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable spam rotated logs"`
		FileName   string `long:"file" env:"FILE" default:"antispam.log" description:"location of spam log"`
		MaxSize    string `long:"max-size" env:"MAX_SIZE" default:"100M" description:"maximum size before it gets rotated"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
	} `group:"logger" namespace:"logger" env-namespace:"LOGGER"`

	Train struct {
		Spam []string `long:"spam" description:"spam corpus file, one message per line"`
		Ham  []string `long:"ham" description:"ham corpus file, one message per line"`
	} `command:"train" description:"train model with corpus files and save it"`

	Check struct {
		Explain bool `long:"explain" description:"print rating of every token"`
		Args    struct {
			Messages []string `positional-arg-name:"MSG"`
		} `positional-args:"yes"`
	} `command:"check" description:"check messages from arguments or stdin, one per line"`

	Server struct {
		Listen       string        `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`
		AuthPasswd   string        `long:"auth" env:"AUTH_PASSWD" description:"basic auth password for user antispam"`
		SaveInterval time.Duration `long:"save-interval" env:"SAVE_INTERVAL" default:"1m" description:"model auto-save interval"`
		CacheSize    int           `long:"cache-size" env:"CACHE_SIZE" default:"1000" description:"max cached check results, 0 to disable"`
		CacheTTL     time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"10m" description:"ttl of cached check results"`
		RateLimit    float64       `long:"rate-limit" env:"RATE_LIMIT" default:"50" description:"max requests per second per client"`
	} `command:"server" description:"run http api server"`

	Export struct {
		Out string `long:"out" required:"true" description:"model file to write, - for stdout"`
	} `command:"export" description:"export model from the store to a model file"`

	Import struct {
		In string `long:"in" required:"true" description:"model file to read"`
	} `command:"import" description:"import model file into the store"`

	Rebuild struct{} `command:"rebuild" description:"rebuild model from training samples kept by sqlite or postgres store"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "local"

func main() {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		var fe *flags.Error
		if !errors.As(err, &fe) || fe.Type != flags.ErrHelp {
			log.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}

	setupLog(opts.Dbg, opts.Server.AuthPasswd, connSecret(opts.Store.Conn))
	log.Printf("[INFO] antispam %s, command %s", revision, p.Active.Name)
	log.Printf("[DEBUG] options: %+v", opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	if err := execute(ctx, p.Active.Name, opts, os.Stdin, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, cmd string, opts options, in io.Reader, out io.Writer) (err error) {
	st, err := makeStore(ctx, opts)
	if err != nil {
		return fmt.Errorf("can't make model store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("can't close model store: %w", cerr)).ErrorOrNil()
		}
	}()

	switch cmd {
	case "export":
		return exportModel(ctx, st, opts.Export.Out, out)
	case "import":
		return importModel(ctx, st, opts.Import.In)
	}

	loggerWr, err := makeSpamLogWriter(opts)
	if err != nil {
		return fmt.Errorf("can't make spam log writer: %w", err)
	}
	defer loggerWr.Close()

	if u, ok := st.models.(updatedAt); ok {
		if ts, uerr := u.UpdatedAt(ctx); uerr == nil && !ts.IsZero() {
			log.Printf("[INFO] stored model updated at %s", ts.Format(time.RFC3339))
		}
	}

	var spamWr spamWriter
	if st.spam != nil {
		spamWr = st.spam
	}
	params := filter.Params{Store: st.models, SpamLogger: makeSpamLogger(loggerWr, spamWr)}
	if st.samples != nil {
		params.Samples = st.samples
	}
	flt, err := filter.New(ctx, params)
	if err != nil {
		return fmt.Errorf("can't make filter: %w", err)
	}

	switch cmd {
	case "train":
		return trainModel(ctx, flt, opts.Train.Spam, opts.Train.Ham, out)
	case "check":
		return checkMessages(flt, opts.Check.Args.Messages, opts.Check.Explain, in, out)
	case "server":
		return runServer(ctx, flt, st, opts)
	case "rebuild":
		return rebuildModel(ctx, flt, st, out)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// modelStore is a model store made from cli options, samples and file are set for some store types only
type modelStore struct {
	models  filter.ModelStore
	samples *storage.Samples      // sqlite and postgres
	spam    *storage.DetectedSpam // sqlite and postgres
	file    string           // file store
	close   func() error
}

type updatedAt interface {
	UpdatedAt(ctx context.Context) (time.Time, error)
}

type spamWriter interface {
	Write(ctx context.Context, entry storage.DetectedSpamInfo) error
}

// Close closes the underlying connection if any
func (s modelStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// makeStore makes model store for the store type. Postgres and redis connections are retried.
func makeStore(ctx context.Context, opts options) (modelStore, error) {
	rpt := repeater.NewDefault(max(opts.Store.Retries, 1), opts.Store.RetryDelay)

	switch opts.Store.Type {
	case "", "file":
		log.Printf("[INFO] model file %s, backup: %v", opts.Store.Conn, opts.Store.Backup)
		return modelStore{models: storage.NewModelFile(opts.Store.Conn, opts.Store.Backup), file: opts.Store.Conn}, nil

	case "sqlite", "postgres":
		var db *engine.SQL
		var err error
		switch {
		case opts.Store.Type == "sqlite":
			db, err = engine.NewSqlite(opts.Store.Conn, opts.Store.GID)
		case !strings.HasPrefix(opts.Store.Conn, "postgres://") && !strings.HasPrefix(opts.Store.Conn, "postgresql://"):
			return modelStore{}, fmt.Errorf("postgres store needs postgres:// url, got %q", opts.Store.Conn)
		default:
			err = rpt.Do(ctx, func() error {
				var e error
				if db, e = engine.New(ctx, opts.Store.Conn, opts.Store.GID); e != nil {
					log.Printf("[WARN] can't connect to postgres: %v", e)
				}
				return e
			})
		}
		if err != nil {
			return modelStore{}, fmt.Errorf("can't connect to %s: %w", opts.Store.Type, err)
		}
		models, err := storage.NewModels(ctx, db)
		if err != nil {
			return modelStore{}, multierror.Append(err, db.Close())
		}
		samples, err := storage.NewSamples(ctx, db)
		if err != nil {
			return modelStore{}, multierror.Append(err, db.Close())
		}
		spam, err := storage.NewDetectedSpam(ctx, db)
		if err != nil {
			return modelStore{}, multierror.Append(err, db.Close())
		}
		log.Printf("[INFO] model store %s", models)
		return modelStore{models: models, samples: samples, spam: spam, close: db.Close}, nil

	case "redis":
		var rds *storage.RedisModels
		err := rpt.Do(ctx, func() error {
			var e error
			if rds, e = storage.NewRedisModels(ctx, opts.Store.Conn, opts.Store.GID); e != nil {
				log.Printf("[WARN] can't connect to redis: %v", e)
			}
			return e
		})
		if err != nil {
			return modelStore{}, fmt.Errorf("can't connect to redis: %w", err)
		}
		log.Printf("[INFO] model store %s", rds)
		return modelStore{models: rds, close: rds.Close}, nil
	}
	return modelStore{}, fmt.Errorf("unsupported store type %q", opts.Store.Type)
}

// trainModel trains the model with corpus files and saves it
func trainModel(ctx context.Context, flt *filter.Filter, spamFiles, hamFiles []string, out io.Writer) error {
	if len(spamFiles) == 0 && len(hamFiles) == 0 {
		return errors.New("no corpus files, use --spam and/or --ham")
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	open := func(files []string) ([]io.Reader, error) {
		res := make([]io.Reader, 0, len(files))
		for _, file := range files {
			if !fileutils.IsFile(file) {
				return nil, fmt.Errorf("corpus file %s not found", file)
			}
			fh, err := os.Open(file) //nolint:gosec // file names from cli
			if err != nil {
				return nil, fmt.Errorf("can't open corpus file: %w", err)
			}
			closers = append(closers, fh)
			res = append(res, fh)
		}
		return res, nil
	}

	spam, err := open(spamFiles)
	if err != nil {
		return err
	}
	ham, err := open(hamFiles)
	if err != nil {
		return err
	}

	res, err := flt.TrainCorpus(ctx, spam, ham)
	if err != nil {
		return fmt.Errorf("can't train model: %w", err)
	}
	if err := flt.Save(ctx); err != nil {
		return err
	}
	st := flt.Stats()
	_, err = fmt.Fprintf(out, "trained with %d spam and %d ham messages, model spam: %d, ham: %d, tokens: %d\n",
		res.SpamMessages, res.HamMessages, st.SpamTotal, st.HamTotal, st.Tokens)
	return err
}

// checkMessages prints score and verdict for each message, messages read from in if none passed
func checkMessages(flt *filter.Filter, msgs []string, explain bool, in io.Reader, out io.Writer) error {
	check := func(msg string) error {
		res := flt.Check(msg)
		verdict := "ham"
		if res.Spam {
			verdict = "spam"
		}
		if _, err := fmt.Fprintf(out, "%.4f\t%s\t%s\n", res.Score, verdict, msg); err != nil {
			return err
		}
		if !explain {
			return nil
		}
		for _, r := range res.Ratings {
			if _, err := fmt.Fprintf(out, "\t%.4f\t%s\n", r.Rating, r.Token); err != nil {
				return err
			}
		}
		return nil
	}

	if len(msgs) > 0 {
		for _, msg := range msgs {
			if err := check(msg); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if msg := strings.TrimSpace(scanner.Text()); msg != "" {
			if err := check(msg); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("can't read messages: %w", err)
	}
	return nil
}

// runServer runs web api with model auto-save, file store also watched for external changes.
// Blocks until context is done.
func runServer(ctx context.Context, flt *filter.Filter, st modelStore, opts options) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		flt.AutoSave(ctx, opts.Server.SaveInterval)
	}()

	if st.file != "" {
		if !fileutils.IsFile(st.file) {
			if err := flt.Save(ctx); err != nil {
				log.Printf("[WARN] can't make model file: %v", err)
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := flt.Watch(ctx, st.file); err != nil {
				log.Printf("[WARN] model file watcher failed: %v", err)
			}
		}()
	}

	cfg := webapi.Config{
		Version:    revision,
		ListenAddr: opts.Server.Listen,
		Filter:     flt,
		AuthPasswd: opts.Server.AuthPasswd,
		CacheSize:  opts.Server.CacheSize,
		CacheTTL:   opts.Server.CacheTTL,
		RateLimit:  opts.Server.RateLimit,
	}
	if st.spam != nil {
		cfg.History = st.spam
	}
	srv := webapi.NewServer(cfg)
	err := srv.Run(ctx)
	wg.Wait() // final save done by auto-save
	if err != nil {
		return fmt.Errorf("web api failed: %w", err)
	}
	return nil
}

// rebuildModel makes a fresh model from stored samples and saves it
func rebuildModel(ctx context.Context, flt *filter.Filter, st modelStore, out io.Writer) error {
	if st.samples == nil {
		return errors.New("rebuild needs sqlite or postgres store with training samples")
	}
	sst, err := st.samples.Stats(ctx)
	if err != nil {
		return fmt.Errorf("can't get samples stats: %w", err)
	}
	log.Printf("[INFO] rebuild model from samples, %s", sst)

	ms, err := flt.Rebuild(ctx)
	if err != nil {
		return err
	}
	if err := flt.Save(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "model rebuilt, spam: %d, ham: %d, tokens: %d\n", ms.SpamTotal, ms.HamTotal, ms.Tokens)
	return err
}

// exportModel writes the stored model to the file, "-" writes to out
func exportModel(ctx context.Context, st modelStore, file string, out io.Writer) error {
	model, err := st.models.Load(ctx)
	if err != nil {
		return fmt.Errorf("can't load model: %w", err)
	}
	if file == "-" {
		return model.Encode(out)
	}
	if err := model.Save(file); err != nil {
		return fmt.Errorf("can't export model: %w", err)
	}
	log.Printf("[INFO] model exported to %s, %+v", file, model.Stats())
	return nil
}

// importModel replaces the stored model with the one from the file
func importModel(ctx context.Context, st modelStore, file string) error {
	if !fileutils.IsFile(file) {
		return fmt.Errorf("model file %s not found", file)
	}
	model := antispam.NewModel()
	if err := model.Load(file); err != nil {
		return fmt.Errorf("can't import model: %w", err)
	}
	if err := st.models.Save(ctx, model); err != nil {
		return fmt.Errorf("can't save imported model: %w", err)
	}
	log.Printf("[INFO] model imported from %s, %+v", file, model.Stats())
	return nil
}

// makeSpamLogger creates spam logger to keep reports about spam messages
// it writes json lines to the provided writer and, if set, saves spam entries to the store
func makeSpamLogger(wr io.Writer, store spamWriter) filter.SpamLogger {
	return filter.SpamLoggerFunc(func(msg string, res filter.Result) {
		text := strings.TrimSpace(strings.ReplaceAll(msg, "\n", " "))
		log.Printf("[INFO] spam detected, score %.4f", res.Score)
		log.Printf("[DEBUG] spam message: %s", text)
		m := struct {
			TimeStamp string  `json:"ts"`
			Score     float64 `json:"score"`
			Text      string  `json:"text"`
		}{
			TimeStamp: time.Now().In(time.Local).Format(time.RFC3339),
			Score:     res.Score,
			Text:      text,
		}
		line, err := json.Marshal(&m)
		if err != nil {
			log.Printf("[WARN] can't marshal json, %v", err)
			return
		}
		if _, err := wr.Write(append(line, '\n')); err != nil {
			log.Printf("[WARN] can't write to log, %v", err)
		}
		if store == nil {
			return
		}
		if err := store.Write(context.Background(), storage.DetectedSpamInfo{Text: text, Score: res.Score}); err != nil {
			log.Printf("[WARN] can't write detected spam, %v", err)
		}
	})
}

// makeSpamLogWriter creates spam log writer to keep reports about spam messages
// it parses options and makes lumberjack logger with rotation
func makeSpamLogWriter(opts options) (io.WriteCloser, error) {
	if !opts.Logger.Enabled {
		return nopWriteCloser{io.Discard}, nil
	}

	maxSize, err := parseSize(opts.Logger.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("can't parse logger MaxSize: %w", err)
	}
	maxSize /= 1048576

	log.Printf("[INFO] logger enabled for %s, max size %dM", opts.Logger.FileName, maxSize)
	return &lumberjack.Logger{
		Filename:   opts.Logger.FileName,
		MaxSize:    int(maxSize), //nolint:gosec // in MB, parsed from options
		MaxBackups: opts.Logger.MaxBackups,
		Compress:   true,
		LocalTime:  true,
	}, nil
}

// parseSize parses size with optional k/m/g/t suffix, case-insensitive
func parseSize(inp string) (uint64, error) {
	if inp == "" {
		return 0, errors.New("empty value")
	}
	for i, sfx := range []string{"k", "m", "g", "t"} {
		if !strings.HasSuffix(strings.ToLower(inp), sfx) {
			continue
		}
		val, err := strconv.Atoi(inp[:len(inp)-1])
		if err != nil {
			return 0, fmt.Errorf("can't parse %s: %w", inp, err)
		}
		return uint64(float64(val) * math.Pow(1024, float64(i+1))), nil
	}
	return strconv.ParseUint(inp, 10, 64)
}

// connSecret returns password from the store connection url, empty if none
func connSecret(conn string) string {
	u, err := url.Parse(conn)
	if err != nil || u.User == nil {
		return ""
	}
	passwd, _ := u.User.Password()
	return passwd
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	nonEmpty := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
