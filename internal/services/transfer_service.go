package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okazaki/taskdesk/internal/constants"
	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"gorm.io/gorm"
)

var ErrNoHeaderRow = errors.New("could not read the CSV file: no header row detected")

// exportColumns is the export header; imports accept the subset without the
// generated columns.
var exportColumns = []string{
	"id", "title", "description", "status", "priority",
	"due_date", "assignee", "created_at", "updated_at",
}

const exportTimeLayout = "2006-01-02T15:04:05"

// ImportResult summarizes a bulk import: how many rows were created, how many
// skipped, and the first few row-level errors.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// TransferService implements the CSV import/export boundary.
type TransferService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

// NewTransferService creates a new TransferService
func NewTransferService(taskRepo repository.TaskRepository, userRepo repository.UserRepository) *TransferService {
	return &TransferService{
		taskRepo: taskRepo,
		userRepo: userRepo,
	}
}

// Export writes the actor's visible tasks as CSV: every task for the owner,
// their own for a worker. Description newlines are flattened so each task
// stays on one row.
func (s *TransferService) Export(actor *models.User, w io.Writer) error {
	var scope *uint64
	if !actor.IsOwner() {
		scope = &actor.ID
	}

	tasks, err := s.taskRepo.ListAll(scope)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	flatten := strings.NewReplacer("\r", " ", "\n", " ")
	for _, t := range tasks {
		dueDate := ""
		if t.DueDate != nil {
			dueDate = t.DueDate.Format(dueDateLayout)
		}
		record := []string{
			fmt.Sprintf("%d", t.ID),
			t.Title,
			flatten.Replace(t.Description),
			string(t.Status),
			string(t.Priority),
			dueDate,
			t.Assignee.Username,
			t.CreatedAt.Format(exportTimeLayout),
			t.UpdatedAt.Format(exportTimeLayout),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Import reads tasks from CSV with permissive per-row validation: missing
// titles and unknown assignees skip the row, unknown status/priority values
// coerce to defaults, and a malformed due date is recorded as an error while
// the row is still created without a date. Workers always import to
// themselves; the owner may name any assignee (the literal "owner" resolves
// to the owner account, blank means the owner themselves).
func (s *TransferService) Import(actor *models.User, r io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	text := strings.TrimPrefix(string(data), "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, ErrNoHeaderRow
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	result := &ImportResult{Errors: []string{}}
	addError := func(format string, args ...interface{}) {
		if len(result.Errors) < constants.MaxImportErrors {
			result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Skipped++
			addError("Row %d: unreadable row", line)
			continue
		}

		empty := true
		for _, v := range record {
			if strings.TrimSpace(v) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		title := field(record, "title")
		if title == "" {
			result.Skipped++
			addError("Row %d: missing title", line)
			continue
		}

		status, _ := models.ParseTaskStatus(field(record, "status"))
		priority, _ := models.ParseTaskPriority(field(record, "priority"))

		var dueDate *time.Time
		if raw := field(record, "due_date"); raw != "" {
			if t, err := time.Parse(dueDateLayout, raw); err == nil {
				dueDate = &t
			} else {
				addError("Row %d: invalid due_date '%s' (use YYYY-MM-DD)", line, raw)
			}
		}

		assignee, skipReason, err := s.resolveAssignee(actor, field(record, "assignee"))
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			result.Skipped++
			addError("Row %d: %s", line, skipReason)
			continue
		}

		task := &models.Task{
			Title:       title,
			Description: field(record, "description"),
			Status:      status,
			Priority:    priority,
			DueDate:     dueDate,
			AssigneeID:  assignee.ID,
			CreatorID:   actor.ID,
		}
		if err := s.taskRepo.Create(task); err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		result.Created++
	}

	return result, nil
}

func (s *TransferService) resolveAssignee(actor *models.User, name string) (*models.User, string, error) {
	if !actor.IsOwner() {
		// Workers can only import for themselves.
		return actor, "", nil
	}
	if name == "" {
		return actor, "", nil
	}

	user, err := s.userRepo.FindByUsername(name)
	if err == nil {
		return user, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to resolve assignee: %w", err)
	}

	if strings.EqualFold(name, "owner") {
		owner, err := s.userRepo.FindOwner()
		if err == nil {
			return owner, "", nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("failed to resolve owner: %w", err)
		}
	}

	return nil, fmt.Sprintf("unknown assignee '%s'", name), nil
}

// sniffDelimiter picks the delimiter among comma, semicolon and tab by
// counting occurrences in the header line.
func sniffDelimiter(text string) rune {
	header := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		header = text[:i]
	}
	best := ','
	bestCount := strings.Count(header, ",")
	if n := strings.Count(header, ";"); n > bestCount {
		best, bestCount = ';', n
	}
	if n := strings.Count(header, "\t"); n > bestCount {
		best = '\t'
	}
	return best
}
