package mocks

import (
	"github.com/stretchr/testify/mock"

	"go-handshake/internal/ws"
)

type TransportMock struct {
	mock.Mock
}

func (m *TransportMock) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *TransportMock) Subscribe(destination string, handler ws.Handler) (ws.Subscription, error) {
	args := m.Called(destination, handler)
	var sub ws.Subscription
	if val := args.Get(0); val != nil {
		sub = val.(ws.Subscription)
	}
	return sub, args.Error(1)
}

func (m *TransportMock) Unsubscribe(destination string) {
	m.Called(destination)
}

func (m *TransportMock) IsSubscribed(destination string) bool {
	args := m.Called(destination)
	return args.Bool(0)
}

func (m *TransportMock) Disconnect() {
	m.Called()
}

type ChannelMock struct {
	mock.Mock
}

func (m *ChannelMock) Publish(destination string, payload any) error {
	args := m.Called(destination, payload)
	return args.Error(0)
}

func (m *ChannelMock) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}
