package service

import (
	"encoding/csv"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"academictracker/internal/metrics"
	"academictracker/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"

	importBatchSize = 500
	progressEvery   = 100
)

// ImportHeader is the expected first row of a grade CSV file.
var ImportHeader = []string{"student_id", "subject_id", "score", "max_score", "date_taken", "note"}

type ProgressInfo struct {
	FileName     string    `json:"file_name"`
	TotalRecords int       `json:"total_records"`
	Processed    int       `json:"processed"`
	Skipped      int       `json:"skipped"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// ImportService loads grades from CSV files with a bounded pool of workers
// and tracks per-file progress for polling and server-sent events.
type ImportService struct {
	db                *gorm.DB
	fileProgressMap   map[string]*ProgressInfo
	fileProgressLock  sync.RWMutex
	progressListeners map[chan *ProgressInfo]bool
	listenerLock      sync.RWMutex

	workerSemaphore chan struct{}
}

func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{
		db:                db,
		fileProgressMap:   make(map[string]*ProgressInfo),
		progressListeners: make(map[chan *ProgressInfo]bool),
		workerSemaphore:   make(chan struct{}, runtime.NumCPU()*2),
	}
}

func (s *ImportService) RegisterProgressListener(ch chan *ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	s.progressListeners[ch] = true
}

func (s *ImportService) UnregisterProgressListener(ch chan *ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	delete(s.progressListeners, ch)
}

// broadcast sends a copy of progress to every listener that is ready.
func (s *ImportService) broadcast(progress *ProgressInfo) {
	s.listenerLock.RLock()
	defer s.listenerLock.RUnlock()

	for listener := range s.progressListeners {
		snapshot := *progress
		select {
		case listener <- &snapshot:
		default:
		}
	}
}

func (s *ImportService) GetFileProgress(fileName string) *ProgressInfo {
	s.fileProgressLock.RLock()
	defer s.fileProgressLock.RUnlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		copyProgress := *progress
		return &copyProgress
	}
	return nil
}

// GetAllFileProgress returns the progress of every file, ordered by name.
func (s *ImportService) GetAllFileProgress() []*ProgressInfo {
	s.fileProgressLock.RLock()
	defer s.fileProgressLock.RUnlock()

	result := make([]*ProgressInfo, 0, len(s.fileProgressMap))
	for _, progress := range s.fileProgressMap {
		copyProgress := *progress
		result = append(result, &copyProgress)
	}
	sortProgress(result)
	return result
}

func (s *ImportService) update(fileName string, fn func(p *ProgressInfo)) {
	s.fileProgressLock.Lock()
	defer s.fileProgressLock.Unlock()

	if progress, exists := s.fileProgressMap[fileName]; exists {
		fn(progress)
		s.broadcast(progress)
	}
}

func (s *ImportService) fail(fileName string, err error) error {
	s.update(fileName, func(p *ProgressInfo) {
		p.Status = StatusError
		p.Error = err.Error()
		p.EndTime = time.Now()
	})
	return err
}

// ProcessCSV imports the grades of one file. Rows referencing an unknown
// student or subject, or carrying a non-positive max_score, are skipped.
func (s *ImportService) ProcessCSV(filePath string) error {
	fileName := filepath.Base(filePath)
	startTime := time.Now()

	s.fileProgressLock.Lock()
	s.fileProgressMap[fileName] = &ProgressInfo{
		FileName:  fileName,
		Status:    StatusProcessing,
		StartTime: startTime,
	}
	s.fileProgressLock.Unlock()

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return s.fail(fileName, errors.Wrap(err, "stat import file"))
	}

	rows, err := readRows(filePath)
	if err != nil {
		return s.fail(fileName, err)
	}
	s.update(fileName, func(p *ProgressInfo) { p.TotalRecords = len(rows) })

	refs, err := s.loadReferences()
	if err != nil {
		return s.fail(fileName, err)
	}

	numWorkers := calculateWorkers(fileInfo.Size())
	log.Printf("Using %d workers for file %s (size: %d bytes)", numWorkers, fileName, fileInfo.Size())

	rowCh := make(chan []string, numWorkers*100)
	errCh := make(chan error, numWorkers)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go s.worker(fileName, refs, rowCh, errCh, &wg)
	}
	for _, row := range rows {
		rowCh <- row
	}
	close(rowCh)
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return s.fail(fileName, err)
	}

	s.update(fileName, func(p *ProgressInfo) {
		p.Status = StatusCompleted
		p.EndTime = time.Now()
	})
	log.Printf("Import completed for %s in %v", fileName, time.Since(startTime))
	return nil
}

// calculateWorkers determines the number of workers based on file size.
func calculateWorkers(fileSize int64) int {
	cpus := runtime.NumCPU()

	switch {
	case fileSize < 1_000_000:
		return min(2, cpus)
	case fileSize < 10_000_000:
		return min(4, cpus)
	case fileSize < 100_000_000:
		return min(8, cpus)
	default:
		return cpus
	}
}

type references struct {
	students map[uint]bool
	subjects map[uint]bool
}

func (s *ImportService) loadReferences() (references, error) {
	var studentIDs, subjectIDs []uint
	if err := s.db.Model(&model.Student{}).Pluck("id", &studentIDs).Error; err != nil {
		return references{}, errors.Wrap(err, "load student ids")
	}
	if err := s.db.Model(&model.Subject{}).Pluck("id", &subjectIDs).Error; err != nil {
		return references{}, errors.Wrap(err, "load subject ids")
	}
	refs := references{students: make(map[uint]bool, len(studentIDs)), subjects: make(map[uint]bool, len(subjectIDs))}
	for _, id := range studentIDs {
		refs.students[id] = true
	}
	for _, id := range subjectIDs {
		refs.subjects[id] = true
	}
	return refs, nil
}

func (s *ImportService) worker(fileName string, refs references, rowCh <-chan []string, errCh chan<- error, wg *sync.WaitGroup) {
	s.workerSemaphore <- struct{}{}
	defer func() {
		<-s.workerSemaphore
		wg.Done()
	}()

	var (
		batch   []model.Grade
		skipped int
		failed  bool
	)
	// report inserts the pending batch and publishes the counters.
	report := func() {
		if failed || (len(batch) == 0 && skipped == 0) {
			return
		}
		if len(batch) > 0 {
			if err := s.db.CreateInBatches(&batch, importBatchSize).Error; err != nil {
				failed = true
				errCh <- errors.Wrap(err, "insert grades")
				return
			}
			metrics.GradesImportedTotal.Add(float64(len(batch)))
		}
		inserted, sk := len(batch), skipped
		s.update(fileName, func(p *ProgressInfo) {
			p.Processed += inserted
			p.Skipped += sk
		})
		batch, skipped = nil, 0
	}

	for row := range rowCh {
		if failed {
			continue
		}
		grade, err := parseRow(row)
		if err == nil {
			err = refs.check(grade)
		}
		if err != nil {
			log.Printf("Skipping row %v of %s: %v", row, fileName, err)
			metrics.GradesSkippedTotal.Inc()
			skipped++
		} else {
			batch = append(batch, grade)
		}

		// Update progress periodically
		if len(batch)+skipped >= progressEvery {
			report()
		}
	}
	report()
}

func (r references) check(g model.Grade) error {
	if !r.students[g.StudentID] {
		return ErrStudentNotFound
	}
	if !r.subjects[g.SubjectID] {
		return ErrSubjectNotFound
	}
	return nil
}

// readRows reads every data row of the file after checking its header.
func readRows(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "open import file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("import file is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read import header")
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read import row")
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func checkHeader(header []string) error {
	if len(header) < 3 {
		return errors.Errorf("import header must start with %s", strings.Join(ImportHeader[:3], ","))
	}
	for i, col := range header {
		if i >= len(ImportHeader) || strings.ToLower(strings.TrimSpace(col)) != ImportHeader[i] {
			return errors.Errorf("unexpected import column %q, want %s", col, strings.Join(ImportHeader, ","))
		}
	}
	return nil
}

func parseRow(row []string) (model.Grade, error) {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	studentID, err := strconv.ParseUint(field(0), 10, 64)
	if err != nil {
		return model.Grade{}, errors.Wrap(err, "student_id")
	}
	subjectID, err := strconv.ParseUint(field(1), 10, 64)
	if err != nil {
		return model.Grade{}, errors.Wrap(err, "subject_id")
	}
	score, err := parseNumber(field(2))
	if err != nil {
		return model.Grade{}, errors.Wrap(err, "score")
	}

	upd := GradeUpdate{Score: &score}
	if v := field(3); v != "" {
		maxScore, err := parseNumber(v)
		if err != nil {
			return model.Grade{}, errors.Wrap(err, "max_score")
		}
		if maxScore <= 0 {
			return model.Grade{}, errors.New("max_score must be greater than 0")
		}
		upd.MaxScore = &maxScore
	}
	if v := field(4); v != "" {
		upd.DateTaken = &v
	}
	if v := field(5); v != "" {
		upd.Note = &v
	}

	grade := model.Grade{StudentID: uint(studentID), SubjectID: uint(subjectID)}
	if err := upd.apply(&grade); err != nil {
		return model.Grade{}, err
	}
	return grade, nil
}

// parseNumber parses a finite float; NaN and infinities are rejected.
func parseNumber(s string) (float64, error) {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, errors.Errorf("%q is not a finite number", s)
	}
	return x, nil
}

func sortProgress(ps []*ProgressInfo) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].FileName < ps[j].FileName })
}
