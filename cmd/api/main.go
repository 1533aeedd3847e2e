package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmops/internal/config"
	"farmops/internal/handler"
	"farmops/internal/infra/accounting"
	"farmops/internal/infra/cache"
	"farmops/internal/infra/db"
	"farmops/internal/infra/memory"
	infraRepo "farmops/internal/infra/repository"
	"farmops/internal/logging"
	"farmops/internal/repository"
	"farmops/internal/server"
	"farmops/internal/usecase"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	logg := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//ストア（postgres / memory）
	txm, closeStore, err := openStore(cfg, logg)
	if err != nil {
		logg.WithError(err).Fatal("open store")
	}
	defer closeStore()

	//冪等キー（REDIS_ADDRが空なら使わない）
	var guard usecase.IdempotencyGuard
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			logg.WithError(err).Fatal("connect redis")
		}
		defer client.Close()
		guard = cache.NewRedisIdempotencyGuard(client, cfg.IdempotencyTTL)
	}

	//会計通知（KAFKA_BROKERSが空ならログだけ）
	var notifier usecase.AccountingNotifier = accounting.NewLogNotifier(logg)
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kn := accounting.NewKafkaNotifier(brokers, cfg.KafkaAccountingTopic, cfg.StoreTimeout)
		defer kn.Close()
		notifier = kn
	}

	idGen := &uuidGenerator{}
	clock := &realClock{}

	//Usecase生成
	inventoryUC := usecase.NewInventoryUsecase(txm, clock, idGen, logg)
	purchaseUC := usecase.NewPurchaseUsecase(txm, clock, idGen, logg)
	orderUC := usecase.NewOrderUsecase(txm, guard, clock, idGen, logg)
	deliveryUC := usecase.NewDeliveryUsecase(txm, guard, clock, idGen, logg)
	scheduleUC := usecase.NewScheduleUsecase(txm, clock, idGen, logg)
	customerUC := usecase.NewCustomerUsecase(txm)
	saleUC := usecase.NewSaleUsecase(txm, notifier, clock, logg)
	auditUC := usecase.NewAuditLogUsecase(txm)

	//Handler生成
	e := server.New(server.Handlers{
		Inventory:   handler.NewInventoryHandler(inventoryUC),
		SupplyChain: handler.NewSupplyChainHandler(purchaseUC, deliveryUC),
		Orders:      handler.NewOrderHandler(orderUC),
		Schedules:   handler.NewScheduleHandler(scheduleUC),
		Customers:   handler.NewCustomerHandler(customerUC),
		Sales:       handler.NewSaleHandler(saleUC),
		AuditLogs:   handler.NewAuditLogHandler(auditUC),
	}, cfg.JWTSecret, logg)

	logg.WithFields(logrus.Fields{
		"addr":  cfg.Addr(),
		"store": cfg.StoreDriver,
	}).Info("server starting")

	if err := server.Start(ctx, e, cfg.Addr()); err != nil {
		logg.WithError(err).Fatal("server stopped")
	}
}

func openStore(cfg config.Config, logg logrus.FieldLogger) (repository.TransactionManager, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logg.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(cfg.StoreTimeout), func() {}, nil
	}

	gdb, err := db.Connect(cfg, logg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return infraRepo.NewTxManagerGorm(gdb, cfg.StoreTimeout), closeFn, nil
}
