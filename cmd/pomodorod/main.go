package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sevlyar/go-daemon"
	flag "github.com/spf13/pflag"

	"pomodoro/internal/app"
	"pomodoro/internal/config"
)

var (
	configPath = flag.StringP("config", "c", "", "Path to configuration file (e.g., config.yaml). Defaults to ./config.yaml, ~/.config/pomodoro/config.yaml, /etc/pomodoro/config.yaml")
	logPath    = flag.String("log", "", "Path to log file (optional, defaults to stderr)")
	daemonize  = flag.BoolP("daemon", "d", false, "Detach from the terminal and run in the background")
	pidPath    = flag.String("pid", filepath.Join(os.TempDir(), "pomodorod.pid"), "PID file used in daemon mode")
)

// setupLogging configures the log output destination.
func setupLogging(logFilePath string) (*os.File, error) {
	if logFilePath == "" {
		log.SetOutput(os.Stderr)
		log.Println("Logging to stderr")
		return nil, nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Printf("Logging to file: %s", logFilePath)
	return file, nil
}

// detach re-executes the daemon in the background. It returns a nil context
// in the parent, which should exit, and the daemon context in the child.
func detach() (*daemon.Context, error) {
	if *logPath == "" {
		return nil, fmt.Errorf("--log is required in daemon mode")
	}
	// The child re-parses os.Args, so it keeps the caller's directory to
	// resolve relative paths the same way.
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cntxt := &daemon.Context{
		PidFileName: *pidPath,
		PidFilePerm: 0644,
		WorkDir:     wd,
		Umask:       027,
	}
	child, err := cntxt.Reborn()
	if err != nil {
		return nil, fmt.Errorf("failed to detach: %w", err)
	}
	if child != nil {
		fmt.Printf("pomodorod started in background (pid %d)\n", child.Pid)
		return nil, nil
	}
	return cntxt, nil
}

func main() {
	flag.Parse()

	if *daemonize {
		cntxt, err := detach()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cntxt == nil {
			return
		}
		defer cntxt.Release()
	}

	logFile, logErr := setupLogging(*logPath)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Error setting up file logging: %v. Logging to stderr instead.\n", logErr)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create application: %v", err)
	}
	config.WatchConfig(application.ApplyConfig)

	if err := application.Run(); err != nil {
		log.Fatalf("FATAL: Application exited with error: %v", err)
	}

	log.Println("Pomodoro daemon finished successfully.")
}
