package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/gateway"
	"app/internal/handler"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/logging"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

func main() {
	//.envはローカル開発用（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := logging.Init("api", cfg.LogFile)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.ActivityLog{},
		&model.AuditLog{},
		&model.Address{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.InventoryAdjustment{},
	); err != nil {
		logger.Error("auto migrate failed", "error", err)
		os.Exit(1)
	}

	//redis（callbackの二重実行ガード）
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	activityRepo := infraRepo.NewActivityLogGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := usecase.RealClock{}

	apiBase := strings.TrimRight(cfg.APIBaseURL, "/")
	esewa := gateway.NewEsewaClient(gateway.EsewaConfig{
		MerchantCode: cfg.EsewaMerchantCode,
		PayURL:       cfg.EsewaPayURL,
		VerifyURL:    cfg.EsewaVerifyURL,
		SuccessURL:   apiBase + "/orders/gateway/success",
		FailureURL:   apiBase + "/orders/gateway/failure",
	})

	//TTLはクラッシュ時の保険。通常はハンドラが終わる時に解放する
	idemStore := cache.NewRedisIdempotencyStore(rdb, 2*time.Minute)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, rtRepo, activityRepo, idGen, clock, usecase.AuthConfig{
		JWTSecret:        []byte(cfg.JWTSecret),
		AccessTTL:        cfg.AccessTTL,
		RefreshTTL:       cfg.RefreshTTL,
		MaxLoginFailures: cfg.MaxLoginFailures,
		LockoutWindow:    cfg.LockoutWindow,
	})
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, auditRepo, clock)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	orderUC := usecase.NewOrderUsecase(txManager, orderRepo, orderItemRepo, esewa, idemStore, clock, logging.New("order"), cfg.FEURL)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, clock)
	adminProductUC := usecase.NewAdminProductUsecase(txManager, productRepo, categoryRepo, inventoryRepo, auditRepo, clock)
	adminUserUC := usecase.NewAdminUserUsecase(userRepo, rtRepo, auditRepo, clock)

	//放置されたPENDING_PAYMENT注文の掃除
	sweeper := usecase.NewOrderSweeper(txManager, orderRepo, clock, logging.New("sweeper"), cfg.PendingPaymentTTL, 5*time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweeper.Run(ctx)

	//Handler生成
	h := server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		Category:     handler.NewCategoryHandler(categoryUC),
		Cart:         handler.NewCartHandler(cartUC),
		Address:      handler.NewAddressHandler(addressUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminProduct: handler.NewAdminProductHandler(adminProductUC),
		AdminUser:    handler.NewAdminUserHandler(adminUserUC),
	}

	srv := server.New(cfg, logger, userRepo, h)

	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}

	go func() {
		logger.Info("server starting", "addr", addr)
		if err := srv.Start(addr); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
