package services

import (
	"testing"

	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	serviceTestSuite
	service *UserService
	owner   *models.User
	worker  *models.User
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.serviceTestSuite.SetupTest()
	suite.service = NewUserService(repository.NewUserRepository(suite.db))
	suite.owner = suite.createTestUser("alice", models.RoleOwner)
	suite.worker = suite.createTestUser("bob", models.RoleWorker)
}

// TestList_OwnerOnly tests directory visibility
func (suite *UserServiceTestSuite) TestList_OwnerOnly() {
	_, err := suite.service.List(suite.worker)
	assert.ErrorIs(suite.T(), err, ErrOwnerOnly)

	users, err := suite.service.List(suite.owner)
	assert.NoError(suite.T(), err)
	suite.Require().Len(users, 2)
	// Ordered by username
	assert.Equal(suite.T(), "alice", users[0].Username)
	assert.Equal(suite.T(), "bob", users[1].Username)
}

// TestDeleteWorker_Cascade tests that nothing keeps referencing the deleted
// account
func (suite *UserServiceTestSuite) TestDeleteWorker_Cascade() {
	task := suite.createTestTask("Bob's task", suite.worker.ID, suite.owner.ID)
	authored := suite.createTestTask("Bob made this", suite.owner.ID, suite.worker.ID)
	req := suite.createTestRequest(task.ID, suite.worker.ID)
	suite.createTestMessage(suite.worker.ID, suite.owner.ID, "bye")
	suite.createTestMessage(suite.owner.ID, suite.worker.ID, "ok")

	// Bob also decided a request once (as if roles changed over time)
	carol := suite.createTestUser("carol", models.RoleWorker)
	carolTask := suite.createTestTask("Carol's task", carol.ID, suite.owner.ID)
	decided := suite.createTestRequest(carolTask.ID, carol.ID)
	suite.db.Model(decided).Updates(map[string]interface{}{
		"status": models.RequestStatusApproved, "decision_by_id": suite.worker.ID,
	})

	err := suite.service.DeleteWorker(suite.owner, suite.worker.ID)
	assert.NoError(suite.T(), err)

	var userCount int64
	suite.db.Model(&models.User{}).Where("id = ?", suite.worker.ID).Count(&userCount)
	assert.EqualValues(suite.T(), 0, userCount)

	// Bob's messages are gone in both directions
	var msgCount int64
	suite.db.Model(&models.Message{}).
		Where("sender_id = ? OR receiver_id = ?", suite.worker.ID, suite.worker.ID).
		Count(&msgCount)
	assert.EqualValues(suite.T(), 0, msgCount)

	// Bob's own request is gone; the decision he made is kept but anonymized
	var reqCount int64
	suite.db.Model(&models.CompletionRequest{}).Where("id = ?", req.ID).Count(&reqCount)
	assert.EqualValues(suite.T(), 0, reqCount)
	var keptDecision models.CompletionRequest
	suite.db.First(&keptDecision, decided.ID)
	assert.Nil(suite.T(), keptDecision.DecisionByID)

	// Bob's tasks now belong to the owner on both sides
	var reassigned, recreated models.Task
	suite.db.First(&reassigned, task.ID)
	suite.db.First(&recreated, authored.ID)
	assert.Equal(suite.T(), suite.owner.ID, reassigned.AssigneeID)
	assert.Equal(suite.T(), suite.owner.ID, recreated.CreatorID)
}

// TestDeleteWorker_Gates tests the permission and target checks
func (suite *UserServiceTestSuite) TestDeleteWorker_Gates() {
	err := suite.service.DeleteWorker(suite.worker, suite.owner.ID)
	assert.ErrorIs(suite.T(), err, ErrOwnerOnly)

	err = suite.service.DeleteWorker(suite.owner, suite.owner.ID)
	assert.ErrorIs(suite.T(), err, ErrCannotDeleteOwner)

	admin := suite.createTestUser("carol", models.RoleAdmin)
	err = suite.service.DeleteWorker(suite.owner, admin.ID)
	assert.ErrorIs(suite.T(), err, ErrCannotDeleteOwner)

	err = suite.service.DeleteWorker(suite.owner, 99999)
	assert.ErrorIs(suite.T(), err, ErrUserNotFound)
}

// TestUpdateRole tests worker<->admin switches and the owner invariants
func (suite *UserServiceTestSuite) TestUpdateRole() {
	updated, err := suite.service.UpdateRole(suite.owner, suite.worker.ID, "admin")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleAdmin, updated.Role)

	updated, err = suite.service.UpdateRole(suite.owner, suite.worker.ID, "worker")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleWorker, updated.Role)

	_, err = suite.service.UpdateRole(suite.owner, suite.worker.ID, "owner")
	assert.ErrorIs(suite.T(), err, ErrSecondOwner)

	_, err = suite.service.UpdateRole(suite.owner, suite.owner.ID, "worker")
	assert.ErrorIs(suite.T(), err, ErrCannotDemoteOwner)

	_, err = suite.service.UpdateRole(suite.worker, suite.owner.ID, "worker")
	assert.ErrorIs(suite.T(), err, ErrOwnerOnly)

	_, err = suite.service.UpdateRole(suite.owner, suite.worker.ID, "superuser")
	assert.ErrorIs(suite.T(), err, ErrInvalidRole)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
