package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/auth"
	"github.com/devwebtn/facturation/internal/config"
	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/models"
)

const tokenTTL = 24 * time.Hour

// ClientService handles registration and authentication. The admin is
// not a database row: its credentials come from configuration and its
// tokens carry the admin role with no client id.
type ClientService struct {
	db    *gorm.DB
	log   *logrus.Logger
	cfg   *config.Config
	audit AuditSink
}

func NewClientService(db *gorm.DB, log *logrus.Logger, cfg *config.Config, audit AuditSink) *ClientService {
	return &ClientService{db: db, log: log, cfg: cfg, audit: audit}
}

type RegisterInput struct {
	Name        string
	Email       string
	Phone       string
	CountryCode string
	Password    string
}

func (s *ClientService) Register(ctx context.Context, in RegisterInput) (*models.Client, error) {
	fields := map[string]string{}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		fields["name"] = "requis"
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		fields["email"] = "adresse email invalide"
	}
	if len(in.Password) < 8 {
		fields["password"] = "8 caractères minimum"
	}
	if len(fields) > 0 {
		return nil, core.Validation("inscription invalide", fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	client := models.Client{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
	}
	if in.CountryCode != "" {
		client.CountryCode = in.CountryCode
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		var existing int64
		s.db.WithContext(ctx).Model(&models.Client{}).Where("email = ?", in.Email).Count(&existing)
		if existing > 0 {
			return nil, core.Conflict("un compte existe déjà avec cette adresse email")
		}
		return nil, err
	}
	s.audit.Record(ctx, client.ID, "Compte créé")
	return &client, nil
}

// LoginResult carries the signed token plus the identity it encodes, so
// handlers can shape the response without re-parsing the token.
type LoginResult struct {
	Token    string         `json:"token"`
	Role     string         `json:"role"`
	Client   *models.Client `json:"client,omitempty"`
	ClientID uint           `json:"client_id,omitempty"`
}

func (s *ClientService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, core.Validation("identifiants requis", nil)
	}

	if s.cfg.AdminEmail != "" && email == strings.ToLower(s.cfg.AdminEmail) {
		if password != s.cfg.AdminPassword {
			return nil, core.Forbidden("identifiants invalides")
		}
		identity := core.Identity{Role: core.RoleAdmin}
		token, err := auth.Issue(s.cfg.JWTSecret, identity, tokenTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Token: token, Role: core.RoleAdmin}, nil
	}

	var client models.Client
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Same answer as a wrong password, so login probes cannot tell
		// registered addresses apart.
		return nil, core.Forbidden("identifiants invalides")
	} else if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(password)) != nil {
		return nil, core.Forbidden("identifiants invalides")
	}

	identity := core.Identity{Role: core.RoleClient, ClientID: client.ID}
	token, err := auth.Issue(s.cfg.JWTSecret, identity, tokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Role: core.RoleClient, Client: &client, ClientID: client.ID}, nil
}

// ChangePassword verifies the current password before setting the new
// one.
func (s *ClientService) ChangePassword(ctx context.Context, identity core.Identity, current, next string) error {
	if !identity.IsClient() {
		return core.Forbidden("réservé aux clients")
	}
	if len(next) < 8 {
		return core.Validation("mot de passe invalide", map[string]string{"new_password": "8 caractères minimum"})
	}
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, identity.ClientID).Error; err != nil {
		return core.NotFound("client")
	}
	if bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(current)) != nil {
		return core.Forbidden("mot de passe actuel incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&client).Update("password_hash", string(hash)).Error; err != nil {
		return err
	}
	s.audit.Record(ctx, client.ID, "Mot de passe modifié")
	return nil
}

// Profile returns the authenticated client's own record.
func (s *ClientService) Profile(ctx context.Context, identity core.Identity) (*models.Client, error) {
	if !identity.IsClient() {
		return nil, core.Forbidden("réservé aux clients")
	}
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, identity.ClientID).Error; err != nil {
		return nil, core.NotFound("client")
	}
	return &client, nil
}

// ListClients is the admin directory view.
func (s *ClientService) ListClients(ctx context.Context, identity core.Identity) ([]models.Client, error) {
	if !identity.IsAdmin() {
		return nil, core.Forbidden("réservé à l'administrateur")
	}
	var clients []models.Client
	if err := s.db.WithContext(ctx).Order("id").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}
