package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/chimekit/chime"
	"github.com/chimekit/chime/cronbridge"
	"github.com/chimekit/chime/internal/config"
	"github.com/chimekit/chime/internal/daemon"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

var (
	cfgPath   string
	nextCount int
	nextZone  string

	cfgFlag = cli.StringFlag{
		Name:        "config, c",
		Usage:       "path to the chimed config file (JSON or YAML)",
		Value:       "./chimed.json",
		Destination: &cfgPath,
	}
)

const timeLayout = "2006-01-02 15:04:05 -07:00"

func main() {
	app := cli.NewApp()
	app.Name = "chimed"
	app.HelpName = "chimed"
	app.Usage = "task scheduler daemon"
	app.Version = version
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the daemon until interrupted",
			Flags:  []cli.Flag{cfgFlag},
			Action: runDaemon,
		},
		{
			Name:   "check",
			Usage:  "validate the config and show when each task fires next",
			Flags:  []cli.Flag{cfgFlag},
			Action: checkConfig,
		},
		{
			Name:      "next",
			Usage:     "show the coming fire times of one schedule descriptor",
			ArgsUsage: `"interval(30, weekday 7)"`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:        "count, n",
					Usage:       "how many fire times to print",
					Value:       3,
					Destination: &nextCount,
				},
				cli.StringFlag{
					Name:        "timezone, z",
					Usage:       "zone to evaluate in: minute offset like \"+480\" or an IANA name",
					Destination: &nextZone,
				},
			},
			Action: nextFires,
		},
		{
			Name:  "version",
			Usage: "print the chimed version",
			Action: func(*cli.Context) error {
				fmt.Printf("chimed %s (%s_%s)\n", version, runtime.GOOS, runtime.GOARCH)
				if commit != "" || date != "" {
					fmt.Printf("build: %s %s\n", commit, date)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "chimed: %s\n", err.Error())
		os.Exit(1)
	}
}

func runDaemon(_ *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfgPath)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}

	reason := daemon.StopSignal
	select {
	case <-ctx.Done():
	case <-d.Done():
		if ctx.Err() == nil {
			reason = daemon.StopFatalError
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = d.Stop(stopCtx, reason)

	return d.Err()
}

func checkConfig(_ *cli.Context) error {
	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	loc := chime.DefaultLocation()
	if l, ok, err := config.ResolveTimezone(cfg.Timezone); err != nil {
		return err
	} else if ok {
		loc = l
	}

	fmt.Printf("config ok: %d task(s), timezone %s\n", len(cfg.Tasks), loc)
	now := time.Now().In(loc)
	for _, tc := range cfg.Tasks {
		sched, err := chime.Parse(tc.Schedule)
		if err != nil {
			// Validate has already parsed every descriptor.
			return err
		}
		when := "never"
		if next, ok := sched.Next(now); ok {
			when = next.Format(timeLayout)
		}
		fmt.Printf("  %-24s %-44s next %s\n", tc.Name, tc.Schedule, when)
	}
	return nil
}

func nextFires(ctx *cli.Context) error {
	desc := strings.TrimSpace(strings.Join(ctx.Args(), " "))
	if desc == "" {
		return cli.ShowCommandHelp(ctx, "next")
	}
	sched, err := chime.Parse(desc)
	if err != nil {
		return err
	}

	loc := chime.DefaultLocation()
	if strings.TrimSpace(nextZone) != "" {
		l, ok, err := config.ResolveTimezone(nextZone)
		if err != nil {
			return err
		}
		if ok {
			loc = l
		}
	}

	fmt.Println(sched)
	if spec, ok := cronbridge.Spec(sched); ok {
		fmt.Printf("cron: %s\n", spec)
	}

	n := nextCount
	if n <= 0 {
		n = 3
	}
	// wait and once fire at most once; more rows would be fiction.
	if sched.Kind == chime.KindWait || sched.Kind == chime.KindOnce {
		n = 1
	}

	cs := cronbridge.Adapt(sched)
	cursor := time.Now().In(loc)
	printed := 0
	for i := 0; i < n; i++ {
		t := cs.Next(cursor)
		if t.IsZero() {
			break
		}
		fmt.Printf("  %s\n", t.In(loc).Format(timeLayout))
		printed++
		cursor = t
	}
	if printed == 0 {
		fmt.Println("  never")
	}
	return nil
}
