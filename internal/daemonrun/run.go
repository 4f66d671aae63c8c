package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"microlesson/internal/analysis"
	"microlesson/internal/api"
	"microlesson/internal/config"
	"microlesson/internal/daemon"
	"microlesson/internal/discovery"
	"microlesson/internal/ingestion"
	"microlesson/internal/ipc"
	"microlesson/internal/logging"
	"microlesson/internal/notifications"
	"microlesson/internal/queue"
	"microlesson/internal/rendering"
	"microlesson/internal/scriptgen"
	"microlesson/internal/segmentation"
	"microlesson/internal/stage"
	"microlesson/internal/synthesis"
	"microlesson/internal/transcription"
	"microlesson/internal/visuals"
	"microlesson/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	SocketPath  string
}

// Run starts the micro-lesson daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("microlessond-%s.log", runID))

	logLevel := opts.LogLevel
	if strings.TrimSpace(logLevel) == "" {
		logLevel = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       logLevel,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update microlessond.log link: %v\n", err)
	}
	pidPath := filepath.Join(cfg.Paths.LogDir, "microlessond.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	workflowManager := workflow.NewManager(cfg, store, logger)
	registerStages(workflowManager, cfg, store, logger)

	videoSvc, err := buildVideoService(cfg, store, logger)
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, store, logger, workflowManager, videoSvc, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = filepath.Join(cfg.Paths.LogDir, "microlessond.sock")
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
		)
	}

	<-signalCtx.Done()
	logger.Info("microlesson daemon shutting down")
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger) {
	if mgr == nil || cfg == nil {
		return
	}

	synthesizer := stage.Chain(
		synthesis.NewSynthesizer(cfg, store, logger),
		visuals.NewEnhancer(cfg, store, logger),
	)

	mgr.ConfigureStages(workflow.StageSet{
		Transcriber:  transcription.NewTranscriber(cfg, store, logger),
		Analyzer:     analysis.NewAnalyzer(cfg, store, logger),
		ScriptWriter: scriptgen.NewWriter(cfg, store, logger),
		Segmenter:    segmentation.NewSegmenter(cfg, store, logger),
		Synthesizer:  synthesizer,
		Renderer:     rendering.NewRenderer(cfg, store, logger),
	})
}

func buildVideoService(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*api.VideoService, error) {
	ingestor := ingestion.NewIngestor(cfg, store, logger)
	renderer := rendering.NewRenderer(cfg, store, logger)

	var searcher api.Searcher
	if strings.TrimSpace(cfg.Catalog.APIKey) != "" {
		discoverer, err := discovery.NewDiscoverer(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("init catalog discoverer: %w", err)
		}
		searcher = discoverer
	}

	svc := api.NewVideoService(store, ingestor, renderer, searcher)
	svc.SetNotifier(notifications.NewService(cfg))
	return svc, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "microlessond.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("textgen_key_present", strings.TrimSpace(cfg.TextGen.APIKey) != ""),
		logging.Bool("catalog_key_present", strings.TrimSpace(cfg.Catalog.APIKey) != ""),
		logging.Bool("tts_configured", strings.TrimSpace(cfg.TTS.BaseURL) != ""),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
