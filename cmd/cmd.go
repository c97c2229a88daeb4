package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/actorkit/kernel/internal/config"
	"github.com/actorkit/kernel/internal/demo"
	"github.com/actorkit/kernel/internal/kernel/system"
)

const (
	ServiceName      = "actorkit-kernel"
	ServiceNamespace = "actorkit"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Actor runtime kernel",
		Commands: []*cli.Command{
			runCmd(),
			demoCmd(),
		},
	}

	return app.Run(os.Args)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "config_file",
		Usage: "Path to the configuration file",
	}
}

func clusterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "cluster",
			Usage: "Enable the clustered bootstrap path (durable AMQP cluster shell)",
		},
		&cli.StringFlag{
			Name:  "amqp_uri",
			Usage: "AMQP URI for the cluster shell's durable publisher (required with --cluster)",
		},
		&cli.StringFlag{
			Name:  "node_id",
			Usage: "This node's identity within the cluster (required with --cluster)",
		},
	}
}

// buildApp picks newApp or newClusteredApp from the --cluster flag, the
// fx-graph swap fx.go's ProvideOptions doc comment describes.
func buildApp(c *cli.Context) (*fx.App, error) {
	configPath := c.String("config_file")
	if !c.Bool("cluster") {
		return newApp(configPath), nil
	}
	amqpURI := c.String("amqp_uri")
	nodeID := c.String("node_id")
	if amqpURI == "" || nodeID == "" {
		return nil, fmt.Errorf("cmd: --cluster requires --amqp_uri and --node_id")
	}
	return newClusteredApp(configPath, amqpURI, nodeID), nil
}

// runCmd boots a bare System and blocks until a termination signal arrives,
// the same lifecycle shape as the teacher's own "server" command.
func runCmd() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Bootstrap the actor system and block until terminated",
		Flags:   append([]cli.Flag{configFlag()}, clusterFlags()...),
		Action: func(c *cli.Context) error {
			app, err := buildApp(c)
			if err != nil {
				return err
			}
			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			return app.Stop(context.Background())
		},
	}
}

// demoCmd runs one of the literal §8 scenarios against a freshly bootstrapped
// System, standing in for the integration-test harness this kernel itself
// does not ship.
func demoCmd() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Run a named end-to-end scenario",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "scenario",
				Usage:    "ping-pong | deferred-start | supervised-restart | stop-cascade | dead-letter | name-collision",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			loader, err := config.Load(c.String("config_file"))
			if err != nil {
				return err
			}
			settings := ProvideSettings(loader, ProvideLogger(loader))

			s, err := system.New(settings)
			if err != nil {
				return fmt.Errorf("cmd: bootstrap: %w", err)
			}
			defer s.Shutdown(context.Background())

			switch c.String("scenario") {
			case "ping-pong":
				pings, pongs, err := demo.RunPingPong(s)
				if err != nil {
					return err
				}
				fmt.Printf("ping-pong: pinger handled %d pongs, ponger handled %d pings\n", pings, pongs)
			case "deferred-start":
				order, err := demo.RunDeferredStart(s)
				if err != nil {
					return err
				}
				fmt.Printf("deferred-start: delivered in order %v after wake\n", order)
			case "name-collision":
				successes, rejections, err := demo.RunNameCollision(s, 8)
				if err != nil {
					return err
				}
				fmt.Printf("name-collision: %d spawn succeeded, %d rejected as already in use\n", successes, rejections)
			case "supervised-restart":
				failures, err := demo.RunSupervisedRestart(s)
				if err != nil {
					return err
				}
				fmt.Printf("supervised-restart: recovered after %d induced failures\n", failures)
			case "stop-cascade":
				parent, err := demo.RunStopCascade(s)
				if err != nil {
					return err
				}
				fmt.Printf("stop-cascade: stop issued to %s\n", parent.Address())
			case "dead-letter":
				stale, err := system.SpawnUser[demo.Ping](s, "stale-target", system.DefaultProps(), demo.NoopPingProducer)
				if err != nil {
					return err
				}
				before, after, err := demo.RunDeadLetterAfterShutdown(s, stale)
				if err != nil {
					return err
				}
				fmt.Printf("dead-letter: count before shutdown %d, after a post-shutdown send %d\n", before, after)
			default:
				return fmt.Errorf("cmd: unknown scenario %q", c.String("scenario"))
			}
			return nil
		},
	}
}
