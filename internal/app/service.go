package app

import (
	"context"
	"strings"
	"time"

	"markershare/internal/auth"
	"markershare/internal/authpw"
	"markershare/internal/config"
	"markershare/internal/kv"
	"markershare/internal/rbac"
	"markershare/internal/store"
)

type Session struct {
	Subject string
	Role    rbac.Role
}

type LoginResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type CreateMarkerInput struct {
	GroupID      any `json:"groupId"`
	RaidID       any `json:"raidId"`
	MarkerString any `json:"markerString"`
	Type         any `json:"type"`
}

type Service struct {
	cfg      config.Config
	kv       kv.Store
	signer   *auth.Signer
	verifier *authpw.Verifier
	groups   *store.EntityRepository
	raids    *store.EntityRepository
	markers  *store.MarkerRepository
}

func NewService(cfg config.Config, kvStore kv.Store, opts ...store.MarkerOption) (*Service, error) {
	signer, err := auth.NewSigner(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	groups := store.NewGroupRepository(kvStore)
	raids := store.NewRaidRepository(kvStore)
	markerOpts := append([]store.MarkerOption{
		store.WithLengthBounds(cfg.MarkerMinLength, cfg.MarkerMaxLength),
		store.WithListPageSize(cfg.KVListPageSize),
	}, opts...)

	return &Service{
		cfg:    cfg,
		kv:     kvStore,
		signer: signer,
		verifier: authpw.NewVerifier(authpw.Credentials{
			Username:           cfg.AdminUsername,
			PasswordHashSHA256: cfg.AdminPasswordHashSHA256,
			PasswordBcrypt:     cfg.AdminPasswordBcrypt,
			Password:           cfg.AdminPassword,
		}),
		groups:  groups,
		raids:   raids,
		markers: store.NewMarkerRepository(kvStore, groups, raids, markerOpts...),
	}, nil
}

func (s *Service) ServiceName() string {
	return s.cfg.ServiceName
}

func (s *Service) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *Service) Login(_ context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if err := s.verifier.Verify(username, password); err != nil {
		return LoginResult{}, err
	}
	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultTTL
	}
	token, _, err := s.signer.Issue(username, string(rbac.RoleAdmin), ttl)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresIn: int64(ttl / time.Second)}, nil
}

// SessionFromToken accepts any validly signed, unexpired token. Callers
// decide what the role is allowed to do.
func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return Session{}, err
	}
	return Session{Subject: claims.Sub, Role: rbac.Role(claims.Role)}, nil
}

func (s *Service) ListGroups(ctx context.Context) ([]store.Entity, error) {
	return s.groups.List(ctx)
}

func (s *Service) CreateGroup(ctx context.Context, name string) (store.Entity, bool, error) {
	return s.groups.Create(ctx, name)
}

func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	return s.groups.Delete(ctx, id)
}

func (s *Service) ListRaids(ctx context.Context) ([]store.Entity, error) {
	return s.raids.List(ctx)
}

func (s *Service) CreateRaid(ctx context.Context, name string) (store.Entity, bool, error) {
	return s.raids.Create(ctx, name)
}

func (s *Service) DeleteRaid(ctx context.Context, id string) error {
	return s.raids.Delete(ctx, id)
}

// ListGroupRaids returns the associated raids in association order,
// skipping ids whose raid no longer exists.
func (s *Service) ListGroupRaids(ctx context.Context, groupID string) ([]store.Entity, error) {
	raidIDs, err := store.NewAssociations(s.kv).RaidIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	raids, err := s.raids.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.Entity, len(raids))
	for _, raid := range raids {
		byID[raid.ID] = raid
	}
	out := make([]store.Entity, 0, len(raidIDs))
	for _, id := range raidIDs {
		if raid, ok := byID[id]; ok {
			out = append(out, raid)
		}
	}
	return out, nil
}

func (s *Service) ListMarkers(ctx context.Context) ([]store.MarkerSummary, error) {
	return s.withNames(ctx)(s.markers.ListAll(ctx))
}

func (s *Service) ListPairMarkers(ctx context.Context, groupID, raidID string) ([]store.MarkerSummary, error) {
	return s.withNames(ctx)(s.markers.ListForPair(ctx, groupID, raidID))
}

func (s *Service) ListGroupMarkers(ctx context.Context, groupID string) ([]store.MarkerSummary, error) {
	return s.withNames(ctx)(s.markers.ListForGroup(ctx, groupID))
}

func (s *Service) GetMarker(ctx context.Context, id string) (store.Marker, error) {
	return s.markers.Get(ctx, id)
}

func (s *Service) CreateMarker(ctx context.Context, session Session, input CreateMarkerInput) (store.Marker, error) {
	fields := map[string]any{
		"groupId":      input.GroupID,
		"raidId":       input.RaidID,
		"markerString": input.MarkerString,
	}
	for _, name := range []string{"groupId", "raidId", "markerString"} {
		value, ok := fields[name].(string)
		if !ok || strings.TrimSpace(value) == "" {
			return store.Marker{}, validationError("field " + name + " is required")
		}
	}
	markerType, _ := input.Type.(string)
	return s.markers.Create(ctx, store.NewMarker{
		GroupID:      input.GroupID.(string),
		RaidID:       input.RaidID.(string),
		MarkerString: input.MarkerString.(string),
		Type:         markerType,
	}, session.Subject)
}

func (s *Service) DeleteMarker(ctx context.Context, id string) error {
	return s.markers.Delete(ctx, id)
}

// withNames fills group and raid names from one read of each collection.
// Ids that no longer resolve keep the raw id as their name.
func (s *Service) withNames(ctx context.Context) func([]store.MarkerSummary, error) ([]store.MarkerSummary, error) {
	return func(items []store.MarkerSummary, err error) ([]store.MarkerSummary, error) {
		if err != nil {
			return nil, err
		}
		groupNames, err := s.names(ctx, s.groups)
		if err != nil {
			return nil, err
		}
		raidNames, err := s.names(ctx, s.raids)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].GroupName = lookupName(groupNames, items[i].GroupID)
			items[i].RaidName = lookupName(raidNames, items[i].RaidID)
		}
		return items, nil
	}
}

func (s *Service) names(ctx context.Context, repo *store.EntityRepository) (map[string]string, error) {
	entities, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(entities))
	for _, entity := range entities {
		names[entity.ID] = entity.Name
	}
	return names, nil
}

func lookupName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}
