package main

import (
	"context"
	"time"

	"PPRelay/global"
	"PPRelay/service/chat"
	"PPRelay/service/directory"
	"PPRelay/service/natsx"
	"PPRelay/service/storage"
	redisx "PPRelay/service/storage/redis"

	"go.uber.org/zap"
)

// deps 持有 relay 之外的连接，按打开顺序逆序关闭
type deps struct {
	dir    directory.UserDirectory
	sinks  []chat.PresenceSink
	redis  *storage.RedisPresence
	closer []func()
}

func openDeps(ctx context.Context, cfg *global.AppConfig, log *zap.Logger) (*deps, error) {
	d := &deps{}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	switch cfg.Directory.Driver {
	case global.DirectoryPostgres:
		pg, err := directory.NewPostgres(ctx, cfg.Directory.DSN)
		if err != nil {
			return nil, err
		}
		d.closer = append(d.closer, pg.Close)
		d.dir = pg
		if cfg.Directory.WriteStatus {
			d.sinks = append(d.sinks, pg)
		}
		log.Info("user directory: postgres")
	case global.DirectoryMongo:
		mg, err := directory.NewMongo(ctx, cfg.Directory.MongoURI, cfg.Directory.Database)
		if err != nil {
			return nil, err
		}
		d.closer = append(d.closer, func() {
			cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = mg.Close(cctx)
		})
		d.dir = mg
		log.Info("user directory: mongo", zap.String("database", cfg.Directory.Database))
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		d.closer = append(d.closer, func() { _ = rdb.Close() })
		d.redis = storage.NewRedisPresence(rdb, cfg.NodeID, cfg.Redis.PresenceTTL)
		d.sinks = append(d.sinks, d.redis)
		log.Info("presence sink: redis", zap.String("addr", cfg.Redis.Addr))
	}

	if len(cfg.NATS.Servers) > 0 {
		nc, err := natsx.NewNatsxClient(natsx.NatsxConfig{
			Servers: cfg.NATS.Servers,
			Name:    cfg.NATS.Name,
		}, log.Named("nats"))
		if err != nil {
			return nil, err
		}
		d.closer = append(d.closer, func() { _ = nc.Close() })
		d.sinks = append(d.sinks, natsx.NewPresencePublisher(natsx.NewNatsxProducer(nc), cfg.NATS.Subject))
		log.Info("presence sink: nats", zap.String("subject", cfg.NATS.Subject))
	}

	ok = true
	return d, nil
}

// touchLoop 定期续期本节点在线用户的 redis key，防止长连接的 key 过期
func (d *deps) touchLoop(ctx context.Context, reg *chat.ConnManager, log *zap.Logger) {
	every := d.redis.TTL() / 2
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tctx, cancel := context.WithTimeout(ctx, every)
			n, err := d.redis.Touch(tctx, reg.Users())
			cancel()
			if err != nil {
				log.Warn("refresh redis presence", zap.Int("users", n), zap.Error(err))
			}
		}
	}
}

func (d *deps) Close() {
	for i := len(d.closer) - 1; i >= 0; i-- {
		d.closer[i]()
	}
	d.closer = nil
}
