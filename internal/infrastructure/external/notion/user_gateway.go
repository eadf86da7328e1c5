package notion

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
	"github.com/garyjia/notion-invoice/internal/infrastructure/retry"
)

// UserGateway implements port.UserGateway on the users database.
type UserGateway struct {
	client     *Client
	usersDB    string
	policy     retry.Policy
	classifier port.ErrorClassifier
	logger     *zap.Logger
}

// NewUserGateway creates a new user gateway
func NewUserGateway(client *Client, usersDB string, policy retry.Policy, classifier port.ErrorClassifier, logger *zap.Logger) *UserGateway {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserGateway{
		client:     client,
		usersDB:    usersDB,
		policy:     policy,
		classifier: classifier,
		logger:     logger,
	}
}

// FindByEmail looks a user up by login email.
func (g *UserGateway) FindByEmail(ctx context.Context, email string) (*entity.UserCredentials, error) {
	const op = "user.find_by_email"

	req := QueryRequest{
		Filter: &Filter{Property: PropEmail, Email: &Condition{Equals: strings.TrimSpace(email)}},
	}
	pages, err := retry.Do(ctx, g.policy, g.logger, op, func(ctx context.Context) ([]Page, error) {
		return g.client.QueryDatabase(ctx, g.usersDB, req)
	})
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}
	if len(pages) == 0 {
		return nil, nil
	}

	user, err := PageToUser(&pages[0])
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}
	return &entity.UserCredentials{User: user, Secret: UserSecret(&pages[0])}, nil
}

// GetByID fetches a user page directly. Unknown ids and pages without an
// email yield nil.
func (g *UserGateway) GetByID(ctx context.Context, id string) (*entity.User, error) {
	const op = "user.get"

	page, err := retry.Do(ctx, g.policy, g.logger, op, func(ctx context.Context) (*Page, error) {
		return g.client.GetPage(ctx, id)
	})
	if err != nil {
		if g.classifier.Classify(err) == apperr.KindNotFound {
			return nil, nil
		}
		return nil, Normalize(op, err, g.classifier)
	}
	if page.Archived {
		return nil, nil
	}

	user, err := PageToUser(page)
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}
	if user.Email == "" {
		return nil, nil
	}
	return user, nil
}

var _ port.UserGateway = (*UserGateway)(nil)
