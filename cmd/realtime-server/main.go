package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/caixinha/realtime/internal/adapters/in/ws"
	authadapter "github.com/caixinha/realtime/internal/adapters/out/auth"
	"github.com/caixinha/realtime/internal/adapters/out/db"
	"github.com/caixinha/realtime/internal/adapters/out/mq"
	redisadapter "github.com/caixinha/realtime/internal/adapters/out/redis"
	"github.com/caixinha/realtime/internal/application"
	"github.com/caixinha/realtime/internal/ports/out"
	"github.com/caixinha/realtime/pkg/jwt"
	"github.com/caixinha/realtime/pkg/zlog"
)

func main() {
	// 加载配置
	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	os.Setenv("APP_ENV", env)

	logCfgPath := filepath.Join(".", "configs", fmt.Sprintf("config.%s.yaml", env))
	if _, err := os.Stat(logCfgPath); os.IsNotExist(err) {
		logCfgPath = filepath.Join("..", "configs", fmt.Sprintf("config.%s.yaml", env))
	}
	logCfg, err := zlog.LoadConfig(logCfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载日志配置失败: %v\n", err)
		os.Exit(1)
	}
	logCfg.Service = "realtime-server"
	zlog.MustInitGlobal(*logCfg)
	defer zap.L().Sync()

	logger := zap.L()
	logger.Info("realtime-server starting", zap.String("env", env))

	// 指标注册
	zlog.RegisterMetrics(prometheus.DefaultRegisterer)
	ws.RegisterMetrics(prometheus.DefaultRegisterer)

	// 初始化数据库
	database, err := initDB()
	if err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}

	// 初始化Redis
	redisClient, err := initRedis()
	if err != nil {
		logger.Fatal("Failed to init redis", zap.Error(err))
	}

	// 初始化Kafka，未配置broker时状态事件旁路整体跳过
	var eventPublisher out.EventPublisher
	if brokers := viper.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		writer := &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		}
		defer writer.Close()
		eventPublisher = mq.NewKafkaPublisher(writer)
	}

	// 持久化协作方
	messageRepo := db.NewMessageRepositoryMySQL(database)
	notificationRepo := db.NewNotificationRepositoryMySQL(database)
	socialGraph := db.NewContactRepositoryMySQL(database)
	presenceStore := redisadapter.NewPresenceStoreRedis(redisClient)

	// 身份校验
	jwtManager := jwt.NewManager(viper.GetString("auth.jwt_secret"))
	verifier := authadapter.NewJWTVerifier(jwtManager)

	// 连接注册表与用例层
	registry := ws.NewRegistry()
	tasks := application.NewTaskQueue(viper.GetInt("server.task_queue_size"))

	presenceUseCase := application.NewPresenceUseCase(
		registry,
		presenceStore,
		socialGraph,
		eventPublisher,
		tasks,
		viper.GetString("kafka.presence_topic"),
	)
	chatUseCase := application.NewChatUseCase(messageRepo)
	notificationUseCase := application.NewNotificationUseCase(notificationRepo, registry)

	// WebSocket编排器
	wsCfg := wsConfigFromViper()
	gate := ws.NewAuthGate(verifier)
	server := ws.NewServer(wsCfg, registry, gate, presenceUseCase, chatUseCase, notificationUseCase)
	server.StartMonitor()

	// HTTP路由
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), zlog.GinLogger())

	router.GET("/ws", func(c *gin.Context) {
		server.HandleConnection(c.Writer, c.Request)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, server.Stats())
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Any("/log/level", gin.WrapF(zlog.LevelHTTPHandler()))

	httpPort := viper.GetInt("server.http_port")
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", httpPort),
		Handler: router,
	}

	go func() {
		logger.Info("realtime server listening", zap.Int("port", httpPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先通告在线客户端，再关HTTP服务，最后排空旁路任务
	server.Shutdown(shutdownCtx)

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	tasks.Drain(5 * time.Second)

	logger.Info("Server exited properly")
}

func loadConfig() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.task_queue_size", 1024)
	viper.SetDefault("ws.ping_period", "30s")
	viper.SetDefault("ws.pong_wait", "60s")
	viper.SetDefault("ws.write_wait", "10s")
	viper.SetDefault("ws.max_message_size", 65536)
	viper.SetDefault("ws.latency_warn", "500ms")
	viper.SetDefault("ws.metrics_interval", "60s")
	viper.SetDefault("ws.auth_grace", "250ms")
	viper.SetDefault("ws.shutdown_grace", "2s")
	viper.SetDefault("ws.send_buffer", 256)
	viper.SetDefault("kafka.presence_topic", "realtime.presence")

	return viper.ReadInConfig()
}

func wsConfigFromViper() *ws.Config {
	cfg := ws.DefaultConfig()
	cfg.PingPeriod = viper.GetDuration("ws.ping_period")
	cfg.PongWait = viper.GetDuration("ws.pong_wait")
	cfg.WriteWait = viper.GetDuration("ws.write_wait")
	cfg.MaxMessageSize = viper.GetInt64("ws.max_message_size")
	cfg.LatencyWarn = viper.GetDuration("ws.latency_warn")
	cfg.MetricsInterval = viper.GetDuration("ws.metrics_interval")
	cfg.AuthGrace = viper.GetDuration("ws.auth_grace")
	cfg.ShutdownGrace = viper.GetDuration("ws.shutdown_grace")
	cfg.SendBuffer = viper.GetInt("ws.send_buffer")
	cfg.AllowedOrigins = viper.GetStringSlice("ws.allowed_origins")
	return cfg
}

func initDB() (*gorm.DB, error) {
	dsn := viper.GetString("mysql.dsn")
	database, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(viper.GetInt("mysql.max_open_conns"))
	sqlDB.SetMaxIdleConns(viper.GetInt("mysql.max_idle_conns"))
	sqlDB.SetConnMaxLifetime(time.Hour)
	return database, nil
}

func initRedis() (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
