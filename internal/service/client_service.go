package service

import (
	"context"

	"paytrack/internal/model"
)

type ClientService struct {
	clients ClientStore
}

func NewClientService(clients ClientStore) *ClientService {
	return &ClientService{clients: clients}
}

func (s *ClientService) Create(ctx context.Context, c *model.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.clients.CreateClient(ctx, c)
}

func (s *ClientService) Get(ctx context.Context, id string) (*model.Client, error) {
	return s.clients.GetClient(ctx, id)
}

func (s *ClientService) List(ctx context.Context) ([]model.Client, error) {
	clients, err := s.clients.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	if clients == nil {
		clients = []model.Client{}
	}
	return clients, nil
}

func (s *ClientService) Update(ctx context.Context, c *model.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.clients.UpdateClient(ctx, c)
}

// Delete removes the client; its projects keep the client name.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	return s.clients.DeleteClient(ctx, id)
}
