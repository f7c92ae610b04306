package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academictracker/internal/analysis"
	"academictracker/internal/config"
	"academictracker/internal/database"
	"academictracker/internal/handler"
	"academictracker/internal/service"

	"github.com/gorilla/handlers"
)

func main() {
	log.SetPrefix("TRACKER : ")
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db := database.InitDB(cfg)

	// Initialize services
	studentService := service.NewStudentService(db)
	subjectService := service.NewSubjectService(db)
	gradeService := service.NewGradeService(db)
	analysisService := service.NewAnalysisService(db)
	importService := service.NewImportService(db)
	remote := service.NewRemoteAnalyzer(cfg.AnalysisServiceURL, cfg.AnalysisTimeout, studentService, gradeService)
	if !remote.Enabled() {
		log.Println("ANALYSIS_SERVICE_URL not set, remote analysis disabled")
	}

	// Initialize handlers
	defaults := analysis.Options{Threshold: cfg.RiskThreshold}
	importHandler := handler.NewImportHandler(importService, cfg.UploadDir)
	r := handler.NewRouter(handler.Handlers{
		Students: handler.NewStudentHandler(studentService),
		Subjects: handler.NewSubjectHandler(subjectService),
		Grades:   handler.NewGradeHandler(gradeService),
		Analysis: handler.NewAnalysisHandler(analysisService, remote, defaults),
		Imports:  importHandler,
		Progress: handler.NewProgressHandler(importService),
		Page:     handler.NewPageHandler(studentService, subjectService, analysisService, defaults),
	})

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.CombinedLoggingHandler(os.Stdout, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed:", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
	importHandler.Wait()
}
