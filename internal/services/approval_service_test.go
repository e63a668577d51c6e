package services

import (
	"testing"

	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ApprovalServiceTestSuite struct {
	serviceTestSuite
	service *ApprovalService
	owner   *models.User
	worker  *models.User
}

func (suite *ApprovalServiceTestSuite) SetupTest() {
	suite.serviceTestSuite.SetupTest()
	suite.service = NewApprovalService(
		repository.NewCompletionRequestRepository(suite.db),
		repository.NewTaskRepository(suite.db),
		repository.NewUserRepository(suite.db),
	)
	suite.owner = suite.createTestUser("alice", models.RoleOwner)
	suite.worker = suite.createTestUser("bob", models.RoleWorker)
}

// TestRequest_Success tests filing a request and the owner notice
func (suite *ApprovalServiceTestSuite) TestRequest_Success() {
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)

	req, err := suite.service.Request(suite.worker, task.ID, "all finished")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RequestStatusPending, req.Status)
	assert.Equal(suite.T(), suite.worker.ID, req.RequestedByID)

	var notice models.Message
	err = suite.db.Where("receiver_id = ?", suite.owner.ID).First(&notice).Error
	assert.NoError(suite.T(), err)
	assert.Contains(suite.T(), notice.Body, "Request to mark task")
	assert.Contains(suite.T(), notice.Body, "Note: all finished")
}

// TestRequest_DuplicatePendingIsBenign tests the one-pending-per-task rule
func (suite *ApprovalServiceTestSuite) TestRequest_DuplicatePendingIsBenign() {
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)

	_, err := suite.service.Request(suite.worker, task.ID, "")
	suite.Require().NoError(err)

	_, err = suite.service.Request(suite.worker, task.ID, "")
	assert.ErrorIs(suite.T(), err, ErrRequestPending)

	var count int64
	suite.db.Model(&models.CompletionRequest{}).Count(&count)
	assert.EqualValues(suite.T(), 1, count)
}

// TestRequest_Gates tests owner/assignee/done preconditions
func (suite *ApprovalServiceTestSuite) TestRequest_Gates() {
	carol := suite.createTestUser("carol", models.RoleWorker)
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)

	_, err := suite.service.Request(suite.owner, task.ID, "")
	assert.ErrorIs(suite.T(), err, ErrOwnerNoRequest)

	_, err = suite.service.Request(carol, task.ID, "")
	assert.ErrorIs(suite.T(), err, ErrNotAssignee)

	suite.db.Model(task).Update("status", models.TaskStatusDone)
	_, err = suite.service.Request(suite.worker, task.ID, "")
	assert.ErrorIs(suite.T(), err, ErrTaskAlreadyDone)
}

// TestApprove_MarksTaskDoneAndNotifies tests the approval path
func (suite *ApprovalServiceTestSuite) TestApprove_MarksTaskDoneAndNotifies() {
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)
	req := suite.createTestRequest(task.ID, suite.worker.ID)

	resolved, err := suite.service.Approve(suite.owner, req.ID, "nice work")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RequestStatusApproved, resolved.Status)
	assert.Equal(suite.T(), suite.owner.ID, *resolved.DecisionByID)
	assert.NotNil(suite.T(), resolved.DecisionAt)

	var stored models.Task
	suite.db.First(&stored, task.ID)
	assert.Equal(suite.T(), models.TaskStatusDone, stored.Status)

	var notice models.Message
	err = suite.db.Where("receiver_id = ?", suite.worker.ID).First(&notice).Error
	assert.NoError(suite.T(), err)
	assert.Contains(suite.T(), notice.Body, "was approved")
	assert.Contains(suite.T(), notice.Body, "Note: nice work")
}

// TestReject_LeavesTaskUntouched tests the rejection path
func (suite *ApprovalServiceTestSuite) TestReject_LeavesTaskUntouched() {
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)
	req := suite.createTestRequest(task.ID, suite.worker.ID)

	resolved, err := suite.service.Reject(suite.owner, req.ID, "not yet")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RequestStatusRejected, resolved.Status)

	var stored models.Task
	suite.db.First(&stored, task.ID)
	assert.Equal(suite.T(), models.TaskStatusTodo, stored.Status)

	var notice models.Message
	err = suite.db.Where("receiver_id = ?", suite.worker.ID).First(&notice).Error
	assert.NoError(suite.T(), err)
	assert.Contains(suite.T(), notice.Body, "was rejected")
}

// TestDecide_AlreadyResolvedIsBenign tests terminal-state decisions
func (suite *ApprovalServiceTestSuite) TestDecide_AlreadyResolvedIsBenign() {
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)
	req := suite.createTestRequest(task.ID, suite.worker.ID)

	_, err := suite.service.Approve(suite.owner, req.ID, "")
	suite.Require().NoError(err)

	resolved, err := suite.service.Reject(suite.owner, req.ID, "")
	assert.ErrorIs(suite.T(), err, ErrAlreadyResolved)
	// The original decision stands
	assert.Equal(suite.T(), models.RequestStatusApproved, resolved.Status)
}

// TestDecide_OwnerOnly tests the approval gate
func (suite *ApprovalServiceTestSuite) TestDecide_OwnerOnly() {
	task := suite.createTestTask("Task", suite.worker.ID, suite.owner.ID)
	req := suite.createTestRequest(task.ID, suite.worker.ID)

	_, err := suite.service.Approve(suite.worker, req.ID, "")
	assert.ErrorIs(suite.T(), err, ErrOwnerOnly)

	// Admins manage nothing here either
	admin := suite.createTestUser("carol", models.RoleAdmin)
	_, err = suite.service.Reject(admin, req.ID, "")
	assert.ErrorIs(suite.T(), err, ErrOwnerOnly)
}

// TestApprove_MissingTaskStillResolves tests tolerance of deleted tasks
func (suite *ApprovalServiceTestSuite) TestApprove_MissingTaskStillResolves() {
	req := suite.createTestRequest(12345, suite.worker.ID)

	resolved, err := suite.service.Approve(suite.owner, req.ID, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RequestStatusApproved, resolved.Status)
}

// TestListPending_Scoped tests the pending list visibility
func (suite *ApprovalServiceTestSuite) TestListPending_Scoped() {
	carol := suite.createTestUser("carol", models.RoleWorker)
	taskB := suite.createTestTask("Bob's task", suite.worker.ID, suite.owner.ID)
	taskC := suite.createTestTask("Carol's task", carol.ID, suite.owner.ID)
	suite.createTestRequest(taskB.ID, suite.worker.ID)
	suite.createTestRequest(taskC.ID, carol.ID)

	all, err := suite.service.ListPending(suite.owner)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)

	own, err := suite.service.ListPending(suite.worker)
	assert.NoError(suite.T(), err)
	suite.Require().Len(own, 1)
	assert.Equal(suite.T(), suite.worker.ID, own[0].RequestedByID)
}

func TestApprovalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ApprovalServiceTestSuite))
}
