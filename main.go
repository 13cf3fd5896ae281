package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"PPRelay/global"
	"PPRelay/logger"
	"PPRelay/middleware"
	"PPRelay/service/chat"
	"PPRelay/service/chat/handlers"
	"PPRelay/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfgPath := flag.String("config", tools.GetEnv("RELAY_CONFIG", ""), "yaml config file")
	flag.Parse()

	cfg, err := global.Load(*cfgPath)
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("relay exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *global.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.Named("relay")

	// 1) 外部依赖：目录、在线状态 sink
	deps, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	// 2) relay 本体
	var lookup chat.PresenceLookup
	if deps.redis != nil {
		lookup = deps.redis
	}
	srv := chat.NewServer(chat.Options{
		NodeID: cfg.NodeID,
		Conn: chat.ConnOptions{
			SendQueueSize: cfg.Relay.SendQueueSize,
			WriteWait:     cfg.Relay.WriteWait,
			SendTimeout:   cfg.Relay.SendTimeout,
			PingInterval:  cfg.Relay.PingInterval,
			RateBurst:     cfg.Relay.RateLimit.Burst,
			RateRefill:    cfg.Relay.RateLimit.RefillInterval,
		},
		MaxMessageSize: cfg.Relay.MaxMessageSize,
		PongWait:       cfg.Relay.PongWait,
		Lookup:         lookup,
	}, log, deps.sinks...)
	handlers.Install(srv, handlers.AuthConfig{
		Mode:      cfg.Auth.Mode,
		JWT:       cfg.JWTOptions(),
		Directory: deps.dir,
	})

	// 3) HTTP / WebSocket
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	srv.Routes(r, middleware.NewOriginPolicy(cfg.HTTP.AllowedOrigins))
	hs := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("[HTTP] listening", zap.String("addr", cfg.HTTP.Addr), zap.Int64("node", cfg.NodeID))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 4) gRPC health
	var gs *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		gs = grpc.NewServer()
		hsrv := health.NewServer()
		healthpb.RegisterHealthServer(gs, hsrv)
		hsrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		g.Go(func() error {
			log.Info("[gRPC] listening", zap.String("addr", cfg.GRPC.Addr))
			return gs.Serve(lis)
		})
		defer hsrv.Shutdown()
	}

	if deps.redis != nil {
		g.Go(func() error {
			deps.touchLoop(gctx, srv.Registry(), log)
			return nil
		})
	}

	// 5) 等待退出信号，优雅关停
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("relay shutdown", zap.Error(err))
		}
		if gs != nil {
			gs.GracefulStop()
		}
		return hs.Shutdown(sctx)
	})

	return g.Wait()
}
