package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-agent-go/internal/api/handler"
	"resume-agent-go/internal/api/router"
	"resume-agent-go/internal/config"
	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/pipeline"
	"resume-agent-go/internal/session"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	appCoreLogger "resume-agent-go/internal/logger"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-agent-go" //nolint:gochecknoglobals
)

// @title Resume Agent API
// @version 1.0
// @description Streaming resume analysis and interview question generation.
// @BasePath /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	initLogger(cfg)
	glog.Info("配置加载成功")

	// 1. 会话存储：默认进程内，配置redis时切换到Redis后端
	store, cleanup, err := initSessionStore(cfg)
	if err != nil {
		glog.Fatalf("初始化会话存储失败: %v", err)
	}
	defer cleanup()
	glog.Infof("会话存储初始化成功, backend: %s", cfg.Session.Backend)

	// 2. LLM模型：未配置API密钥时回退到MockChatModel，服务仍可脱机运行
	var chatModel model.ToolCallingChatModel
	if cfg.Aliyun.APIKey != "" {
		chatModel, err = llm.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL)
		if err != nil {
			glog.Fatalf("初始化LLM模型失败: %v", err)
		}
		glog.Infof("LLM模型初始化成功, model: %s", cfg.Aliyun.Model)
	} else {
		chatModel = &llm.MockChatModel{}
		glog.Warn("未配置ALIYUN_API_KEY，回退到MockChatModel")
	}

	generator := llm.NewEinoTextGenerator(chatModel,
		llm.WithCallTimeout(cfg.Pipeline.StageTimeout()),
		llm.WithMaxRetries(cfg.Pipeline.MaxRetries),
		llm.WithGeneratorLogger(log.New(appCoreLogger.Logger, "[LLM] ", log.LstdFlags)),
	)

	// 3. 流水线引擎
	pipelineLogger := log.New(appCoreLogger.Logger, "[Pipeline] ", log.LstdFlags)
	engine := pipeline.NewEngine(store, generator, cfg.Pipeline, pipelineLogger)
	glog.Info("分析流水线初始化成功")

	// 4. HTTP服务器与路由
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	analysisHandler := handler.NewAnalysisHandler(engine, log.New(appCoreLogger.Logger, "[ResumeAnalysis] ", log.LstdFlags))
	router.RegisterRoutes(h, analysisHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	appCoreLogger.Logger = appCoreLogger.Logger.With().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	// 把Hertz的全局日志接到同一个zerolog实例上
	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
}

// initSessionStore 按配置选择会话存储后端，返回存储与清理函数。
func initSessionStore(cfg *config.Config) (session.Store, func(), error) {
	if cfg.Session.Backend != "redis" {
		return session.NewMemoryStore(), func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  time.Duration(cfg.Redis.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.Redis.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutSeconds) * time.Second,
	})
	store, err := session.NewRedisStore(redisClient, cfg.Redis.SessionTTL())
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}
	return store, func() { _ = redisClient.Close() }, nil
}
