package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpc_adapter "github.com/JoeShih716/go-mem-wallet/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-mem-wallet/internal/logger"
	grpcpool "github.com/JoeShih716/go-mem-wallet/pkg/grpc"
)

func main() {
	var (
		target      = flag.String("target", "localhost:50051", "ledger gRPC address")
		accounts    = flag.Int("accounts", 10, "number of accounts to create")
		balance     = flag.String("balance", "1000", "initial balance of each account")
		totalCount  = flag.Int("n", 100000, "number of transfers")
		concurrency = flag.Int("c", 100, "concurrent workers")
		timeout     = flag.Duration("timeout", 120*time.Second, "overall timeout")
	)
	flag.Parse()

	log := logger.New(logger.Config{Level: "info"})

	initial, err := decimal.NewFromString(*balance)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -balance")
	}

	pool := grpcpool.NewPool(
		grpcpool.WithDefaultCallOptions(grpc.CallContentSubtype(grpc_adapter.CodecName)),
		grpcpool.WithLogger(log),
	)
	defer pool.Close()
	conn, err := pool.GetConnection(*target)
	if err != nil {
		log.Fatal().Err(err).Msg("did not connect")
	}
	client := grpc_adapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ids := make([]string, 0, *accounts)
	for i := 0; i < *accounts; i++ {
		acc, err := client.CreateAccount(ctx, initial)
		if err != nil {
			log.Fatal().Err(err).Msg("create account failed")
		}
		ids = append(ids, acc.ID)
	}
	expected := initial.Mul(decimal.NewFromInt(int64(*accounts)))

	var (
		next         atomic.Int64
		ok, rejected atomic.Int64
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < *concurrency; w++ {
		rng := rand.New(rand.NewSource(int64(w) + start.UnixNano()))
		g.Go(func() error {
			for next.Add(1) <= int64(*totalCount) {
				from := ids[rng.Intn(len(ids))]
				to := ids[rng.Intn(len(ids))]
				if from == to {
					continue
				}
				amount := decimal.New(int64(rng.Intn(10000)+1), -2)
				_, err := client.Transfer(gctx, from, to, amount)
				switch status.Code(err) {
				case codes.OK:
					ok.Add(1)
				case codes.FailedPrecondition:
					rejected.Add(1)
				default:
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("transfer failed")
	}
	elapsed := time.Since(start)

	// 確認總額沒有變
	total := decimal.Zero
	for _, id := range ids {
		acc, err := client.GetAccount(ctx, id)
		if err != nil {
			log.Fatal().Err(err).Str("account", id).Msg("get account failed")
		}
		total = total.Add(acc.Balance)
	}

	done := ok.Load() + rejected.Load()
	log.Info().
		Int64("ok", ok.Load()).
		Int64("insufficient", rejected.Load()).
		Dur("elapsed", elapsed).
		Float64("tps", float64(done)/elapsed.Seconds()).
		Str("total", total.String()).
		Msg("load test finished")

	if !total.Equal(expected) {
		log.Error().Str("expected", expected.String()).Str("got", total.String()).Msg("funds not conserved")
		os.Exit(1)
	}
}
