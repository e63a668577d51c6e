package services

import (
	"time"

	"github.com/okazaki/taskdesk/internal/database"
	"github.com/okazaki/taskdesk/internal/models"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// serviceTestSuite carries the in-memory database and fixture helpers shared
// by the service suites.
type serviceTestSuite struct {
	suite.Suite
	db *gorm.DB
}

// SetupTest runs before each test
func (suite *serviceTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Message{},
		&models.CompletionRequest{},
	)
	suite.Require().NoError(err)

	// Set the test DB as the default database
	database.SetDB(suite.db)
}

// TearDownTest runs after each test
func (suite *serviceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *serviceTestSuite) createTestUser(username string, role models.Role) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

func (suite *serviceTestSuite) createTestTask(title string, assigneeID, creatorID uint64) *models.Task {
	task := &models.Task{
		Title:       title,
		Description: "Test Description",
		Status:      models.TaskStatusTodo,
		Priority:    models.TaskPriorityMedium,
		AssigneeID:  assigneeID,
		CreatorID:   creatorID,
	}
	suite.db.Create(task)
	return task
}

func (suite *serviceTestSuite) createTestMessage(senderID, receiverID uint64, body string) *models.Message {
	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
	}
	suite.db.Create(msg)
	return msg
}

func (suite *serviceTestSuite) createTestRequest(taskID, requestedByID uint64) *models.CompletionRequest {
	req := &models.CompletionRequest{
		TaskID:        taskID,
		RequestedByID: requestedByID,
		Status:        models.RequestStatusPending,
	}
	suite.db.Create(req)
	return req
}

func (suite *serviceTestSuite) dueOn(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	suite.Require().NoError(err)
	return &t
}
