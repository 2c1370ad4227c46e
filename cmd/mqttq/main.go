// Command mqttq publishes, subscribes and pings an MQTT 3.1.1 broker.
//
// Usage:
//
//	mqttq [-config file] [-stats] pub -t topic -m message [-q qos] [-r]
//	mqttq [-config file] [-stats] sub -t topic [-t topic...] [-n count]
//	mqttq [-config file] [-stats] ping
//
// With -stats the client counters are printed to stderr on exit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/vitalvas/mqttq"
	"github.com/vitalvas/mqttq/internal/config"
)

var errUsage = errors.New("usage: mqttq [-config file] [-stats] <pub|sub|ping> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		log.Fatal(err)
	}
}

// topicList collects repeated -t flags.
type topicList []string

func (t *topicList) String() string { return strings.Join(*t, ",") }

func (t *topicList) Set(v string) error {
	*t = append(*t, v)
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("mqttq", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "path to YAML configuration")
	stats := global.Bool("stats", false, "print client counters to stderr on exit")

	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	opts, err := cfg.Options(stderr)
	if err != nil {
		return err
	}

	if *stats {
		metrics := mqttq.NewMemoryMetrics()
		opts = append(opts, mqttq.WithMetrics(metrics))
		defer printStats(stderr, metrics)
	}

	client := mqttq.NewClient(opts...)

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "pub":
		return runPub(ctx, client, rest, stdout, stderr)
	case "sub":
		return runSub(ctx, client, rest, stdout, stderr)
	case "ping":
		return runPing(ctx, client, stdout)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// printStats writes one "series value" line per counter and gauge, sorted.
func printStats(w io.Writer, metrics *mqttq.MemoryMetrics) {
	snapshot := metrics.Snapshot()
	for _, key := range slices.Sorted(maps.Keys(snapshot)) {
		fmt.Fprintf(w, "%s %g\n", color.YellowString(key), snapshot[key])
	}
}

func runPub(ctx context.Context, client *mqttq.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pub", flag.ContinueOnError)
	fs.SetOutput(stderr)
	topic := fs.String("t", "", "topic to publish to")
	message := fs.String("m", "", "message payload")
	qos := fs.Uint("q", 0, "QoS level")
	retain := fs.Bool("r", false, "retain the message")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topic == "" {
		return errors.New("pub: -t is required")
	}
	if *qos > uint(mqttq.QoS2) {
		return mqttq.ErrInvalidQoS
	}

	return client.Run(ctx, func(c *mqttq.Client) error {
		if err := c.Publish(*topic, []byte(*message), mqttq.WithQoS(byte(*qos)), mqttq.WithRetain(*retain)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %s (%d bytes)\n", color.GreenString("published"), color.CyanString(*topic), len(*message))
		return nil
	})
}

func runSub(ctx context.Context, client *mqttq.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sub", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var topics topicList
	fs.Var(&topics, "t", "topic filter to subscribe to (repeatable)")
	count := fs.Int("n", 0, "exit after this many messages, 0 means forever")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(topics) == 0 {
		return errors.New("sub: at least one -t is required")
	}

	return client.Run(ctx, func(c *mqttq.Client) error {
		if err := c.Subscribe([]string(topics)); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "%s %s\n", color.GreenString("subscribed"), topics.String())

		// a receiver failure ends the wait with the failure as cause
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		go func() {
			select {
			case err := <-c.Errors():
				cancel(err)
			case <-ctx.Done():
			}
		}()

		for received := 0; *count == 0 || received < *count; received++ {
			msg, err := c.GetContext(ctx)
			if err != nil {
				if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
					return cause
				}
				return nil
			}
			printMessage(stdout, msg, topics)
		}
		return nil
	})
}

func printMessage(w io.Writer, msg mqttq.Message, filters []string) {
	matched := ""
	for _, filter := range filters {
		if mqttq.TopicMatch(filter, msg.Topic) {
			matched = filter
			break
		}
	}

	line := color.CyanString(msg.Topic)
	if msg.Retain {
		line += color.YellowString(" [retained]")
	}
	line += " " + string(msg.Payload)
	if matched != "" && matched != msg.Topic {
		line += color.MagentaString(" (" + matched + ")")
	}

	fmt.Fprintln(w, line)
}

func runPing(ctx context.Context, client *mqttq.Client, stdout io.Writer) error {
	start := time.Now()

	return client.Run(ctx, func(c *mqttq.Client) error {
		handshake := time.Since(start)
		if err := c.Ping(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %s handshake in %s\n",
			color.GreenString("pong"), color.CyanString(c.ClientID()), handshake.Round(time.Microsecond))
		return nil
	})
}
