package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/mockupreel/internal/animation"
	"github.com/ivlev/mockupreel/internal/api"
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/capture"
	"github.com/ivlev/mockupreel/internal/config"
	"github.com/ivlev/mockupreel/internal/logging"
	"github.com/ivlev/mockupreel/internal/media"
	"github.com/ivlev/mockupreel/internal/project"
	"github.com/ivlev/mockupreel/internal/render"
	"github.com/ivlev/mockupreel/internal/session"
	"github.com/ivlev/mockupreel/internal/system"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

const benchmarkLog = "benchmark.log"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	cfg := config.Default()
	cfg.BuildVersion = version
	if err := cfg.ApplyEnvFile(config.DotEnvFile); err != nil {
		log.Fatalf("[-] Ошибка окружения: %v", err)
	}

	projectPtr := flag.String("project", "", "Путь к YAML-проекту (экраны, длительности, зумы)")
	inputPtr := flag.String("input", "", "Скриншоты, PDF, видео или папки через запятую")
	outputPtr := flag.String("output", cfg.OutputDir, "Папка для готовых роликов")
	presetPtr := flag.String("preset", cfg.Preset, "Анимация: "+presetList())
	layoutPtr := flag.String("layout", cfg.Layout, "Устройства: iphone, android, both")
	qualityPtr := flag.String("quality", string(cfg.Quality), "Качество: 720p, 1080p, 4k")
	backgroundPtr := flag.String("background", cfg.Background, "Цвет фона (#rrggbb)")
	gradientPtr := flag.Bool("gradient", false, "Радиальный градиент на фоне")
	fpsPtr := flag.Int("fps", cfg.FPS, "FPS записи")
	dpiPtr := flag.Int("dpi", cfg.DPI, "DPI для страниц PDF")
	workersPtr := flag.Int("workers", cfg.Workers, "Потоки импорта")
	transcodePtr := flag.Bool("transcode", cfg.Transcode, "Конвертировать WebM в MP4 (H.264)")
	qrPtr := flag.String("qr", "", "Добавить QR-код с этим текстом в конец ролика")
	servePtr := flag.Bool("serve", false, "Запустить HTTP API вместо разового экспорта")
	listenPtr := flag.String("listen", cfg.Listen, "Адрес HTTP API")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности после экспорта")
	savePtr := flag.String("save", "", "Сохранить проект в YAML после импорта")
	logLevelPtr := flag.String("log-level", cfg.LogLevel, "Уровень логов: debug, info, warn, error")

	flag.Parse()

	cfg.ProjectPath = *projectPtr
	cfg.Inputs = splitList(*inputPtr)
	cfg.OutputDir = *outputPtr
	cfg.Preset = *presetPtr
	cfg.Layout = *layoutPtr
	cfg.Quality = config.Quality(*qualityPtr)
	cfg.Background = *backgroundPtr
	cfg.Gradient = *gradientPtr
	cfg.FPS = *fpsPtr
	cfg.DPI = *dpiPtr
	cfg.Workers = *workersPtr
	cfg.Transcode = *transcodePtr
	cfg.QRText = *qrPtr
	cfg.Serve = *servePtr
	cfg.Listen = *listenPtr
	cfg.ShowStats = *statsPtr
	cfg.LogLevel = *logLevelPtr

	logger := logging.NewLogger(cfg.LogLevel)

	// Настройки проекта работают как значения по умолчанию, флаги важнее.
	var proj *project.Project
	if cfg.ProjectPath != "" {
		p, err := project.Read(cfg.ProjectPath)
		if err != nil {
			log.Fatalf("[-] Ошибка проекта: %v", err)
		}
		applyProjectDefaults(cfg, p, explicitFlags())
		proj = p
		fmt.Printf("[*] Проект: %s (%d экранов)\n", cfg.ProjectPath, len(p.Screens))
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	quality, _ := config.ParseQuality(string(cfg.Quality))
	background, _ := config.ParseHexColor(cfg.Background)

	if !system.HasFFmpeg() {
		fmt.Println("[!] ffmpeg не найден: видео и запись недоступны")
	}

	width, height := quality.Dimensions()
	compositor, err := render.NewCompositor(render.Options{
		Width:      width,
		Height:     height,
		Background: background,
		Gradient:   cfg.Gradient,
	})
	if err != nil {
		log.Fatalf("[-] Ошибка рендера: %v", err)
	}

	importer := assets.NewImporter(logging.WithComponent(logger, "assets"))
	importer.DPI = cfg.DPI
	importer.Workers = cfg.Workers

	captureOpts := capture.Options{
		Encoder: &capture.FFmpegStreamEncoder{},
		Sink:    capture.DirSink{Dir: cfg.OutputDir},
		FPS:     cfg.FPS,
		Logger:  logging.WithComponent(logger, "capture"),
	}
	if cfg.Transcode {
		captureOpts.Transcoder = capture.NewFFmpegTranscoder()
	}

	mediaLogger := logging.WithComponent(logger, "media")
	sess, err := session.New(session.Options{
		Preset:     animation.PresetID(cfg.Preset),
		Layout:     animation.Layout(cfg.Layout),
		Background: background,
		Gradient:   cfg.Gradient,
		FPS:        cfg.FPS,
		Importer:   importer,
		Elements: func(screen assets.Screen, device animation.Layout) session.VideoElement {
			w, h := render.DeviceByName(string(device)).TextureSize()
			return media.NewElement(screen.Path, media.Options{Width: w, Height: h}, mediaLogger)
		},
		Renderer: compositor,
		Surface:  compositor,
		Capture:  captureOpts,
		Logger:   logging.WithComponent(logger, "session"),
	})
	if err != nil {
		log.Fatalf("[-] Ошибка сессии: %v", err)
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sess.Start(ctx)

	importStart := time.Now()
	if err := load(ctx, sess, importer, proj, cfg); err != nil {
		log.Fatalf("[-] Ошибка импорта: %v", err)
	}
	if n := len(sess.Snapshot().Clips); n > 0 {
		fmt.Printf("[*] Импортировано клипов: %d за %.2fs\n", n, time.Since(importStart).Seconds())
	}

	if *savePtr != "" {
		p, err := project.FromState(sess.Snapshot(), quality)
		if err == nil {
			err = project.Write(p, *savePtr)
		}
		if err != nil {
			log.Printf("[!] Не удалось сохранить проект: %v", err)
		} else {
			fmt.Printf("[*] Проект сохранен: %s\n", *savePtr)
		}
	}

	if cfg.Serve {
		serve(ctx, cfg, sess, compositor, quality, logger)
		return
	}

	if err := export(ctx, cfg, sess, quality); err != nil {
		log.Fatalf("[-] Ошибка экспорта: %v", err)
	}
}

// load fills the session from the project file or from -input.
func load(ctx context.Context, sess *session.EditorSession, importer *assets.Importer, proj *project.Project, cfg *config.Config) error {
	switch {
	case proj != nil:
		if err := proj.Apply(ctx, sess, importer); err != nil {
			return err
		}
	case len(cfg.Inputs) > 0:
		inputs, err := expandInputs(cfg.Inputs)
		if err != nil {
			return err
		}
		if _, err := sess.AddScreens(ctx, inputs); err != nil {
			return err
		}
		if err := sess.WaitProbes(ctx); err != nil {
			return err
		}
	}
	if cfg.QRText != "" {
		qr, err := importer.ImportQR(cfg.QRText, 0)
		if err != nil {
			return err
		}
		if _, err := sess.AddImported([]assets.Imported{qr}); err != nil {
			return err
		}
	}
	return nil
}

func export(ctx context.Context, cfg *config.Config, sess *session.EditorSession, quality config.Quality) error {
	start := time.Now()
	if err := sess.StartRecording(ctx, quality); err != nil {
		return err
	}
	rec := sess.RecordingState()
	fmt.Printf("[*] Запись: %.2fs, %s, %d кбит/с\n", rec.Duration, quality, rec.Bitrate/1000)

	select {
	case <-sess.RecordingDone():
	case <-ctx.Done():
		fmt.Println("[!] Прервано, сохраняем то, что записано")
		if err := sess.StopRecording(); err != nil && !errors.Is(err, capture.ErrNotRecording) {
			return err
		}
		<-sess.RecordingDone()
	}

	rec = sess.RecordingState()
	if rec.State == capture.StateFailed {
		return errors.New(rec.Error)
	}
	if !rec.Converted && cfg.Transcode {
		fmt.Println("[!] Конвертация в MP4 не удалась, сохранен WebM")
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", rec.Artifact)

	if cfg.ShowStats {
		printStats(cfg, rec, time.Since(start))
	}
	return nil
}

func printStats(cfg *config.Config, rec capture.Session, total time.Duration) {
	host, err := system.TakeSnapshot(context.Background(), 200*time.Millisecond)
	if err != nil {
		log.Printf("[!] Статистика системы неполная: %v", err)
	}
	recorded := rec.StoppedAt.Sub(rec.StartedAt)
	stats := system.ExportStats{
		Build:    cfg.BuildVersion,
		Artifact: rec.Artifact,
		Quality:  string(rec.Quality),
		Frames:   rec.Frames,
		Recorded: recorded,
		Convert:  max(0, total-recorded),
		Total:    total,
		Host:     host,
	}
	fmt.Print(stats.Report())
	if err := system.AppendBenchmarkLog(benchmarkLog, stats); err != nil {
		fmt.Printf("[!] Не удалось записать %s: %v\n", benchmarkLog, err)
	}
}

func serve(ctx context.Context, cfg *config.Config, sess *session.EditorSession, compositor *render.Compositor, quality config.Quality, logger *slog.Logger) {
	srv := api.NewServer(api.ServerConfig{
		Listen:    cfg.Listen,
		Session:   sess,
		Preview:   compositor,
		Quality:   quality,
		Logger:    logging.WithComponent(logger, "api"),
		StartTime: time.Now(),
		Version:   cfg.BuildVersion,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	fmt.Printf("[*] HTTP API: http://%s\n", srv.Addr())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Fatalf("[-] Ошибка сервера: %v", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[!] Остановка сервера: %v", err)
	}
	if sess.RecordingState().Active() {
		sess.StopRecording()
		if done := sess.RecordingDone(); done != nil {
			<-done
		}
	}
	fmt.Println("[*] Сервер остановлен")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandInputs replaces every directory by the media files inside it.
func expandInputs(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := system.ListMedia(p)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[*] %s: %d файлов\n", p, len(files))
		out = append(out, files...)
	}
	return out, nil
}

func presetList() string {
	names := make([]string, len(animation.Catalog))
	for i, id := range animation.Catalog {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}

func explicitFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// applyProjectDefaults copies the project's look into cfg for every setting
// not given on the command line, then writes the merged look back so that
// Project.Apply keeps the command line values.
func applyProjectDefaults(cfg *config.Config, p *project.Project, explicit map[string]bool) {
	if p.Preset != "" && !explicit["preset"] {
		cfg.Preset = p.Preset
	}
	if p.Layout != "" && !explicit["layout"] {
		cfg.Layout = p.Layout
	}
	if p.Quality != "" && !explicit["quality"] {
		cfg.Quality = config.Quality(p.Quality)
	}
	if p.Background != "" && !explicit["background"] {
		cfg.Background = p.Background
	}
	if p.Gradient && !explicit["gradient"] {
		cfg.Gradient = true
	}
	p.Preset, p.Layout, p.Background, p.Gradient = cfg.Preset, cfg.Layout, cfg.Background, cfg.Gradient
}
