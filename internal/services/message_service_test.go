package services

import (
	"testing"

	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type MessageServiceTestSuite struct {
	serviceTestSuite
	service *MessageService
	owner   *models.User
	worker  *models.User
}

func (suite *MessageServiceTestSuite) SetupTest() {
	suite.serviceTestSuite.SetupTest()
	suite.service = NewMessageService(
		repository.NewMessageRepository(suite.db),
		repository.NewUserRepository(suite.db),
	)
	suite.owner = suite.createTestUser("alice", models.RoleOwner)
	suite.worker = suite.createTestUser("bob", models.RoleWorker)
}

// TestSend_Success tests a plain message
func (suite *MessageServiceTestSuite) TestSend_Success() {
	msg, err := suite.service.Send(suite.worker, suite.owner.ID, "hello")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.worker.ID, msg.SenderID)
	assert.Equal(suite.T(), suite.owner.ID, msg.ReceiverID)
	assert.Nil(suite.T(), msg.ReadAt)
}

// TestSend_EmptyBody tests the body validation
func (suite *MessageServiceTestSuite) TestSend_EmptyBody() {
	_, err := suite.service.Send(suite.worker, suite.owner.ID, "")
	assert.ErrorIs(suite.T(), err, ErrEmptyBody)
}

// TestSend_WorkerToWorkerForbidden tests the thread permission rule
func (suite *MessageServiceTestSuite) TestSend_WorkerToWorkerForbidden() {
	carol := suite.createTestUser("carol", models.RoleWorker)

	_, err := suite.service.Send(suite.worker, carol.ID, "psst")
	assert.ErrorIs(suite.T(), err, ErrThreadNotAllowed)

	// Admins only reach the owner too
	admin := suite.createTestUser("dave", models.RoleAdmin)
	_, err = suite.service.Send(admin, suite.worker.ID, "hi")
	assert.ErrorIs(suite.T(), err, ErrThreadNotAllowed)
}

// TestOpenThread_MarksReadAndSendsReceipt tests the worker read receipt
func (suite *MessageServiceTestSuite) TestOpenThread_MarksReadAndSendsReceipt() {
	suite.createTestMessage(suite.owner.ID, suite.worker.ID, "first")
	suite.createTestMessage(suite.owner.ID, suite.worker.ID, "second")

	other, thread, err := suite.service.OpenThread(suite.worker, suite.owner.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.owner.ID, other.ID)

	// Two originals plus the receipt
	suite.Require().Len(thread, 3)
	receipt := thread[2]
	assert.Equal(suite.T(), suite.worker.ID, receipt.SenderID)
	assert.Contains(suite.T(), receipt.Body, "I have read your message(s)")

	var unread int64
	suite.db.Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", suite.worker.ID).
		Count(&unread)
	assert.EqualValues(suite.T(), 0, unread)
}

// TestOpenThread_OwnerReadsWithoutReceipt tests that only workers receipt
func (suite *MessageServiceTestSuite) TestOpenThread_OwnerReadsWithoutReceipt() {
	suite.createTestMessage(suite.worker.ID, suite.owner.ID, "report ready")

	_, thread, err := suite.service.OpenThread(suite.owner, suite.worker.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), thread, 1)
	assert.NotNil(suite.T(), thread[0].ReadAt)

	var count int64
	suite.db.Model(&models.Message{}).Count(&count)
	assert.EqualValues(suite.T(), 1, count)
}

// TestOpenThread_IdempotentWhenNothingUnread tests the reopen case
func (suite *MessageServiceTestSuite) TestOpenThread_IdempotentWhenNothingUnread() {
	suite.createTestMessage(suite.owner.ID, suite.worker.ID, "hello")

	_, _, err := suite.service.OpenThread(suite.worker, suite.owner.ID)
	suite.Require().NoError(err)

	// Second open: no new receipt
	_, thread, err := suite.service.OpenThread(suite.worker, suite.owner.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), thread, 2)

	var count int64
	suite.db.Model(&models.Message{}).Count(&count)
	assert.EqualValues(suite.T(), 2, count)
}

// TestResolvePartner tests the default thread selection
func (suite *MessageServiceTestSuite) TestResolvePartner() {
	// Worker always lands on the owner
	other, err := suite.service.ResolvePartner(suite.worker)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.owner.ID, other.ID)

	// Owner with no unread lands on the first worker by username
	carol := suite.createTestUser("carol", models.RoleWorker)
	other, err = suite.service.ResolvePartner(suite.owner)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.worker.ID, other.ID)

	// An unread message wins over username order
	suite.createTestMessage(carol.ID, suite.owner.ID, "ping")
	other, err = suite.service.ResolvePartner(suite.owner)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), carol.ID, other.ID)
}

// TestResolvePartner_NoWorkers tests the empty-directory case
func (suite *MessageServiceTestSuite) TestResolvePartner_NoWorkers() {
	suite.db.Delete(suite.worker)

	_, err := suite.service.ResolvePartner(suite.owner)
	assert.ErrorIs(suite.T(), err, ErrNoWorkers)
}

// TestDeleteMessage_OwnerOnly tests single-message deletion
func (suite *MessageServiceTestSuite) TestDeleteMessage_OwnerOnly() {
	msg := suite.createTestMessage(suite.worker.ID, suite.owner.ID, "oops")

	_, err := suite.service.DeleteMessage(suite.worker, msg.ID)
	assert.ErrorIs(suite.T(), err, ErrOwnerManagesOnly)

	otherID, err := suite.service.DeleteMessage(suite.owner, msg.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.worker.ID, otherID)

	var count int64
	suite.db.Model(&models.Message{}).Count(&count)
	assert.EqualValues(suite.T(), 0, count)
}

// TestDeleteThread tests whole-conversation deletion
func (suite *MessageServiceTestSuite) TestDeleteThread() {
	carol := suite.createTestUser("carol", models.RoleWorker)
	suite.createTestMessage(suite.worker.ID, suite.owner.ID, "one")
	suite.createTestMessage(suite.owner.ID, suite.worker.ID, "two")
	suite.createTestMessage(carol.ID, suite.owner.ID, "keep me")

	err := suite.service.DeleteThread(suite.worker, suite.owner.ID)
	assert.ErrorIs(suite.T(), err, ErrOwnerManagesOnly)

	err = suite.service.DeleteThread(suite.owner, suite.worker.ID)
	assert.NoError(suite.T(), err)

	var remaining []models.Message
	suite.db.Find(&remaining)
	suite.Require().Len(remaining, 1)
	assert.Equal(suite.T(), carol.ID, remaining[0].SenderID)
}

func TestMessageServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MessageServiceTestSuite))
}
