// cmd/ipquery/main.go

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/sinspired/ipquery"
	"github.com/sinspired/ipquery/internal/config"
	"github.com/sinspired/ipquery/internal/logging"
	"github.com/sinspired/ipquery/internal/resolver"
)

const defaultConfigFile = "ipquery.toml"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ipquery",
		Short:         "IP 归属地查询插件",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigFile, "配置文件路径 (TOML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "日志级别，覆盖配置文件与 LOG_LEVEL")

	cmd.AddCommand(newServeCmd(opts), newQueryCmd(opts), newChatCmd(opts))
	return cmd
}

// setup 加载配置、初始化日志并创建 Service
func setup(opts *rootOptions) (*ipquery.Service, *config.Config, func(), error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger, logCloser := logging.Setup(logging.SetupParams{LogLevel: cfg.LogLevel, LogFile: cfg.LogFile, Output: os.Stderr})

	cli, err := resolver.NewClient(cfg, logger)
	if err != nil {
		if logCloser != nil {
			logCloser.Close()
		}
		return nil, nil, nil, err
	}
	svc := ipquery.NewService(cli, logger)

	cleanup := func() {
		if err := svc.Close(); err != nil {
			slog.Warn("关闭会话失败", "error", err)
		}
		if logCloser != nil {
			logCloser.Close()
		}
	}
	return svc, cfg, cleanup, nil
}

// ensureConfigFile 配置文件不存在时写入默认配置
func ensureConfigFile(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		slog.Debug(fmt.Sprintf("创建默认配置文件失败: %s, err: %v", path, err))
		return
	}
	defer f.Close()
	_ = toml.NewEncoder(f).Encode(config.Default())
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 接口",
		RunE: func(cmd *cobra.Command, args []string) error {
			ensureConfigFile(opts.configPath)

			svc, cfg, cleanup, err := setup(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           svc.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info(fmt.Sprintf("listening on http://localhost%s/api ...", cfg.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <ip>",
		Short: "查询单个 IP 并输出回复",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := setup(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, reply := range svc.HandleMessage(cmd.Context(), "ip 查询 "+args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), reply)
			}
			return nil
		},
	}
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "从标准输入逐行读取消息并输出回复",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := setup(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return chatLoop(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type messageHandler interface {
	HandleMessage(ctx context.Context, text string) []string
}

// chatLoop 每行一条消息，非 ip 指令的消息忽略
func chatLoop(ctx context.Context, h messageHandler, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, reply := range h.HandleMessage(ctx, line) {
			fmt.Fprintln(out, reply)
		}
	}
	return scanner.Err()
}
