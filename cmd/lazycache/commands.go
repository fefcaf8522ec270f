// commands.go: demo subcommands
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/agilira/lazycache"
	"github.com/agilira/lazycache/retry"
)

func newIDFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  "id",
		Usage: "record id to read",
		Value: 123,
	}
}

// getCommand reads one record repeatedly; only the first read reaches the store.
func getCommand() *cli.Command {
	return &cli.Command{
		Name:  "get",
		Usage: "read a record through the cache",
		Flags: []cli.Flag{
			newIDFlag(),
			&cli.IntFlag{Name: "repeat", Usage: "number of reads", Value: 2},
			&cli.BoolFlag{Name: "memoize", Usage: "read through a memoized function"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt := getRuntime(cmd)
			svc := NewDataService(rt.cache, fetchFromDatabase)
			id := cmd.Int("id")
			log.Debugf("get id=%d repeat=%d", id, cmd.Int("repeat"))

			for i := 0; i < cmd.Int("repeat"); i++ {
				var v string
				var err error
				if cmd.Bool("memoize") {
					v, err = svc.GetDataMemoized(id)
				} else {
					v, err = svc.GetData(ctx, id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "Cached Data for ID %d: %s\n", id, v)
			}
			fmt.Fprintf(rt.out, "producer calls: %d\n", svc.Calls())
			printStats(rt.out, rt.cache.Stats())
			return nil
		},
	}
}

// expireCommand probes an expiring record on a fixed schedule.
func expireCommand() *cli.Command {
	return &cli.Command{
		Name:  "expire",
		Usage: "watch a record expire and get produced again",
		Flags: []cli.Flag{
			newIDFlag(),
			&cli.StringFlag{
				Name:  "mode",
				Usage: "absolute or sliding",
				Value: "absolute",
				Validator: func(value string) error {
					if value != "absolute" && value != "sliding" {
						return fmt.Errorf("unknown expiration mode %q", value)
					}
					return nil
				},
			},
			&cli.DurationFlag{Name: "ttl", Usage: "expiration duration or sliding window", Value: 2 * time.Second},
			&cli.DurationFlag{Name: "probe", Usage: "pause between reads", Value: time.Second},
			&cli.IntFlag{Name: "count", Usage: "number of reads", Value: 4},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt := getRuntime(cmd)
			svc := NewDataService(rt.cache, fetchFromDatabase)
			id, ttl, probe := cmd.Int("id"), cmd.Duration("ttl"), cmd.Duration("probe")
			sliding := cmd.String("mode") == "sliding"

			start := time.Now()
			for i := 0; i < cmd.Int("count"); i++ {
				if i > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(probe):
					}
				}

				var v string
				var err error
				if sliding {
					v, err = svc.GetDataWithSlidingExpiration(ctx, id, ttl)
				} else {
					v, err = svc.GetDataWithExpiration(ctx, id, ttl)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "t=%-6s %s (producer calls: %d)\n",
					time.Since(start).Round(100*time.Millisecond), v, svc.Calls())
			}
			printStats(rt.out, rt.cache.Stats())
			return nil
		},
	}
}

// retryCommand runs a producer that fails a set number of times.
func retryCommand() *cli.Command {
	return &cli.Command{
		Name:  "retry",
		Usage: "produce a record with a flaky backend",
		Flags: []cli.Flag{
			newIDFlag(),
			&cli.IntFlag{Name: "attempts", Usage: "maximum producer attempts", Value: retry.DefaultMaxAttempts},
			&cli.IntFlag{Name: "failures", Usage: "failures before the backend recovers", Value: 2},
			&cli.StringFlag{
				Name:  "backoff",
				Usage: "none, fixed or exponential",
				Value: "none",
				Validator: func(value string) error {
					if _, ok := retry.ParseBackoffKind(value); !ok {
						return fmt.Errorf("unknown backoff %q", value)
					}
					return nil
				},
			},
			&cli.DurationFlag{Name: "delay", Usage: "fixed delay or exponential base", Value: 100 * time.Millisecond},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt := getRuntime(cmd)

			kind, _ := retry.ParseBackoffKind(cmd.String("backoff"))
			policy := retry.Policy{
				MaxAttempts: cmd.Int("attempts"),
				Backoff:     retry.Backoff{Kind: kind, Delay: cmd.Duration("delay")},
			}
			if err := rt.cache.Configure(policy); err != nil {
				return err
			}

			svc := NewDataService(rt.cache, failingFetcher(cmd.Int("failures"), fetchFromDatabase))
			id := cmd.Int("id")
			v, err := svc.GetData(ctx, id)
			switch {
			case lazycache.IsRetriesExhausted(err):
				fmt.Fprintf(rt.out, "gave up after %d attempts: %v\n", svc.Calls(), err)
			case err != nil:
				return err
			default:
				fmt.Fprintf(rt.out, "Cached Data with Retry for ID %d: %s\n", id, v)
			}
			fmt.Fprintf(rt.out, "producer calls: %d, cached: %t\n", svc.Calls(), rt.cache.Has(lazycache.Key("data", id)))
			printStats(rt.out, rt.cache.Stats())
			return nil
		},
	}
}

// stampedeCommand fires concurrent readers at one cold key.
func stampedeCommand() *cli.Command {
	return &cli.Command{
		Name:  "stampede",
		Usage: "read one cold record from many goroutines at once",
		Flags: []cli.Flag{
			newIDFlag(),
			&cli.IntFlag{Name: "callers", Usage: "concurrent readers", Value: 100},
			&cli.DurationFlag{Name: "latency", Usage: "backend latency", Value: 50 * time.Millisecond},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt := getRuntime(cmd)
			svc := NewDataService(rt.cache, slowFetcher(cmd.Duration("latency"), fetchFromDatabase))
			id := cmd.Int("id")

			var wg sync.WaitGroup
			errs := make(chan error, cmd.Int("callers"))
			for i := 0; i < cmd.Int("callers"); i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := svc.GetData(ctx, id); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)

			if err, ok := <-errs; ok {
				return err
			}
			fmt.Fprintf(rt.out, "callers: %d, producer calls: %d\n", cmd.Int("callers"), svc.Calls())
			printStats(rt.out, rt.cache.Stats())
			return nil
		},
	}
}
