package services

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type TransferServiceTestSuite struct {
	serviceTestSuite
	service *TransferService
	owner   *models.User
	worker  *models.User
}

func (suite *TransferServiceTestSuite) SetupTest() {
	suite.serviceTestSuite.SetupTest()
	suite.service = NewTransferService(
		repository.NewTaskRepository(suite.db),
		repository.NewUserRepository(suite.db),
	)
	suite.owner = suite.createTestUser("alice", models.RoleOwner)
	suite.worker = suite.createTestUser("bob", models.RoleWorker)
}

func (suite *TransferServiceTestSuite) export(actor *models.User) [][]string {
	var buf bytes.Buffer
	err := suite.service.Export(actor, &buf)
	suite.Require().NoError(err)

	records, err := csv.NewReader(&buf).ReadAll()
	suite.Require().NoError(err)
	return records
}

// TestExport_HeaderAndScope tests the column set and per-role visibility
func (suite *TransferServiceTestSuite) TestExport_HeaderAndScope() {
	carol := suite.createTestUser("carol", models.RoleWorker)
	suite.createTestTask("Bob's task", suite.worker.ID, suite.owner.ID)
	suite.createTestTask("Carol's task", carol.ID, suite.owner.ID)

	records := suite.export(suite.owner)
	suite.Require().Len(records, 3)
	assert.Equal(suite.T(), []string{
		"id", "title", "description", "status", "priority",
		"due_date", "assignee", "created_at", "updated_at",
	}, records[0])

	records = suite.export(suite.worker)
	suite.Require().Len(records, 2)
	assert.Equal(suite.T(), "Bob's task", records[1][1])
	assert.Equal(suite.T(), "bob", records[1][6])
}

// TestExport_FlattensNewlines tests single-row descriptions
func (suite *TransferServiceTestSuite) TestExport_FlattensNewlines() {
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)
	suite.db.Model(task).Update("description", "line one\r\nline two\nline three")

	records := suite.export(suite.owner)
	assert.Equal(suite.T(), "line one  line two line three", records[1][2])
}

// TestImport_CreatesCoercesAndReports tests the permissive row handling
func (suite *TransferServiceTestSuite) TestImport_CreatesCoercesAndReports() {
	input := strings.Join([]string{
		"title,description,status,priority,due_date,assignee",
		"Good row,desc,in_progress,high,2026-09-20,bob",
		",missing title,,,,",
		"Bad status,desc,bogus,bogus,,bob",
		"Bad date,desc,todo,low,20-09-2026,bob",
		",,,,,",
		"For the owner,desc,todo,medium,,owner",
		"Unknown assignee,desc,todo,medium,,ghost",
	}, "\n")

	result, err := suite.service.Import(suite.owner, strings.NewReader(input))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, result.Created)
	assert.Equal(suite.T(), 2, result.Skipped)

	suite.Require().Len(result.Errors, 3)
	assert.Equal(suite.T(), "Row 3: missing title", result.Errors[0])
	assert.Contains(suite.T(), result.Errors[1], "Row 5: invalid due_date")
	assert.Contains(suite.T(), result.Errors[2], "Row 8: unknown assignee 'ghost'")

	var coerced models.Task
	suite.db.Where("title = ?", "Bad status").First(&coerced)
	assert.Equal(suite.T(), models.TaskStatusTodo, coerced.Status)
	assert.Equal(suite.T(), models.TaskPriorityMedium, coerced.Priority)

	// The invalid date row is still created, dateless
	var dateless models.Task
	suite.db.Where("title = ?", "Bad date").First(&dateless)
	assert.Nil(suite.T(), dateless.DueDate)

	var ownerTask models.Task
	suite.db.Where("title = ?", "For the owner").First(&ownerTask)
	assert.Equal(suite.T(), suite.owner.ID, ownerTask.AssigneeID)
}

// TestImport_SniffsDelimiterAndBOM tests semicolon files from spreadsheets
func (suite *TransferServiceTestSuite) TestImport_SniffsDelimiterAndBOM() {
	input := "\uFEFFtitle;assignee\r\nSemicolon row;bob\r\n"

	result, err := suite.service.Import(suite.owner, strings.NewReader(input))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, result.Created)
	assert.Empty(suite.T(), result.Errors)

	var task models.Task
	suite.db.Where("title = ?", "Semicolon row").First(&task)
	assert.Equal(suite.T(), suite.worker.ID, task.AssigneeID)
}

// TestImport_WorkerAlwaysImportsToSelf tests the worker assignee rule
func (suite *TransferServiceTestSuite) TestImport_WorkerAlwaysImportsToSelf() {
	input := "title,assignee\nMine anyway,alice\n"

	result, err := suite.service.Import(suite.worker, strings.NewReader(input))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, result.Created)

	var task models.Task
	suite.db.Where("title = ?", "Mine anyway").First(&task)
	assert.Equal(suite.T(), suite.worker.ID, task.AssigneeID)
	assert.Equal(suite.T(), suite.worker.ID, task.CreatorID)
}

// TestImport_BlankAssigneeMeansImporter tests the owner default
func (suite *TransferServiceTestSuite) TestImport_BlankAssigneeMeansImporter() {
	input := "title\nNo assignee column\n"

	result, err := suite.service.Import(suite.owner, strings.NewReader(input))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, result.Created)

	var task models.Task
	suite.db.Where("title = ?", "No assignee column").First(&task)
	assert.Equal(suite.T(), suite.owner.ID, task.AssigneeID)
}

// TestImport_EmptyFile tests the missing-header error
func (suite *TransferServiceTestSuite) TestImport_EmptyFile() {
	_, err := suite.service.Import(suite.owner, strings.NewReader(""))
	assert.ErrorIs(suite.T(), err, ErrNoHeaderRow)
}

func TestTransferServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransferServiceTestSuite))
}
