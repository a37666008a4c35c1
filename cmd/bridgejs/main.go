package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/session"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML configuration")
		inline      = flag.String("e", "", "Inline script to run after the files")
		demo        = flag.Bool("demo", false, "Inject the sample host objects (myobject, myactivity)")
		schema      = flag.Bool("schema", false, "Print the configuration JSON schema and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		timeout     = flag.Duration("timeout", time.Minute, "Maximum time to wait for each script")
		engine      = flag.String("engine", "", "Script engine: goja or quickjs (overrides session.engine)")
	)
	flag.Parse()

	if *schema {
		out, err := config.Schema()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *engine != "" {
		cfg.Session.Engine = *engine
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, *demo, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() == 0 && *inline == "" && !*demo {
		fmt.Fprintln(os.Stderr, "Usage: bridgejs [-config file.yaml] [-engine goja|quickjs] [-demo] [-e script] file.js ...")
		fmt.Fprintln(os.Stderr, "       bridgejs -demo -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       bridgejs -schema")
		os.Exit(1)
	}

	if err := run(cfg, *demo, flag.Args(), *inline, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, demo bool, files []string, inline string, timeout time.Duration) error {
	log, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	defer log.Sync()

	s, err := start(cfg, log, demo)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	if demo && len(files) == 0 && inline == "" {
		inline = demoScript
	}

	failed := 0
	wait := func(task *session.Task) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		v, err := task.Wait(ctx)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", task.Label(), err)
			return
		}
		if !v.IsNone() {
			fmt.Printf("%s => %s\n", task.Label(), v)
		}
	}

	// Queue files ahead of waiting so they run back to back. When the queue
	// is full, wait for the oldest task before submitting more.
	var pending []*session.Task
	submit := func(queue func() (*session.Task, error)) error {
		for {
			task, err := queue()
			if err == nil {
				pending = append(pending, task)
				return nil
			}
			if !session.IsQueueFull(err) || len(pending) == 0 {
				return err
			}
			wait(pending[0])
			pending = pending[1:]
		}
	}

	for _, f := range files {
		err := submit(func() (*session.Task, error) {
			return s.RunFile(context.Background(), f)
		})
		if err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	if inline != "" {
		err := submit(func() (*session.Task, error) {
			return s.RunBuffer([]byte(inline))
		})
		if err != nil {
			return err
		}
	}
	for _, task := range pending {
		wait(task)
	}

	if failed > 0 {
		return fmt.Errorf("%d script(s) failed", failed)
	}
	return nil
}

// start creates and initializes a session, injecting the demo objects if
// requested.
func start(cfg config.Config, log *zap.Logger, demo bool) (*session.Session, error) {
	s := session.New(session.WithConfig(cfg), session.WithLogger(log))
	if demo {
		if err := injectDemo(s, log); err != nil {
			return nil, err
		}
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}
	return s, nil
}
