package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-handshake/internal/models"
)

type HistoryMock struct {
	mock.Mock
}

func (m *HistoryMock) EnterRoom(ctx context.Context, roomID int64) (*models.EntryPage, error) {
	args := m.Called(ctx, roomID)
	var page *models.EntryPage
	if val := args.Get(0); val != nil {
		page = val.(*models.EntryPage)
	}
	return page, args.Error(1)
}

func (m *HistoryMock) FetchMessages(ctx context.Context, roomID int64, cursor string, size int) (*models.Page[models.HistoryMessage], error) {
	args := m.Called(ctx, roomID, cursor, size)
	var page *models.Page[models.HistoryMessage]
	if val := args.Get(0); val != nil {
		page = val.(*models.Page[models.HistoryMessage])
	}
	return page, args.Error(1)
}

type RoomAPIMock struct {
	mock.Mock
}

func (m *RoomAPIMock) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	args := m.Called(ctx)
	var rooms []models.ChatRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.ChatRoom)
	}
	return rooms, args.Error(1)
}

func (m *RoomAPIMock) ExitRoom(ctx context.Context, roomID int64) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomAPIMock) ReportRoom(ctx context.Context, roomID int64, reason string) error {
	args := m.Called(ctx, roomID, reason)
	return args.Error(0)
}

type CandidateSupplyMock struct {
	mock.Mock
}

func (m *CandidateSupplyMock) Candidates(ctx context.Context, limit int) (*models.Candidates, error) {
	args := m.Called(ctx, limit)
	var c *models.Candidates
	if val := args.Get(0); val != nil {
		c = val.(*models.Candidates)
	}
	return c, args.Error(1)
}

func (m *CandidateSupplyMock) SubmitAction(ctx context.Context, req models.ActionRequest) (*models.ActionResult, error) {
	args := m.Called(ctx, req)
	var res *models.ActionResult
	if val := args.Get(0); val != nil {
		res = val.(*models.ActionResult)
	}
	return res, args.Error(1)
}

func (m *CandidateSupplyMock) ResetPreferences(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
