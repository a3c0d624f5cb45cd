package services

import (
	"context"

	"orgledger/internal/core"
	"orgledger/internal/log"
	"orgledger/internal/storage"
)

// CatalogService manages organizations and projects. Every write drops the
// affected organization's cached ledger views.
type CatalogService struct {
	storage *storage.SQLiteRepository
	ledger  *LedgerService
	logger  *log.Logger
}

func NewCatalogService(storage *storage.SQLiteRepository, ledger *LedgerService, logger *log.Logger) *CatalogService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CatalogService{storage: storage, ledger: ledger, logger: logger.WithComponent(log.ComponentLedger)}
}

func (s *CatalogService) invalidate(organizationID int64) {
	if s.ledger != nil && organizationID != 0 {
		s.ledger.Invalidate(organizationID)
	}
}

func (s *CatalogService) ListOrganizations(ctx context.Context) ([]core.Organization, error) {
	return s.storage.ListOrganizations(ctx)
}

func (s *CatalogService) GetOrganization(ctx context.Context, id int64) (core.Organization, error) {
	return s.storage.GetOrganization(ctx, id)
}

func (s *CatalogService) CreateOrganization(ctx context.Context, o core.Organization) (core.Organization, error) {
	if err := o.Validate(); err != nil {
		return core.Organization{}, err
	}
	id, err := s.storage.CreateOrganization(ctx, o)
	if err != nil {
		return core.Organization{}, err
	}
	s.logger.InfoContext(ctx, "Organization created", log.FieldOrganizationID, id, log.FieldOperation, log.OpCreate)
	return s.storage.GetOrganization(ctx, id)
}

func (s *CatalogService) UpdateOrganization(ctx context.Context, o core.Organization) (core.Organization, error) {
	if err := o.Validate(); err != nil {
		return core.Organization{}, err
	}
	if err := s.storage.UpdateOrganization(ctx, o); err != nil {
		return core.Organization{}, err
	}
	s.invalidate(o.ID)
	return s.storage.GetOrganization(ctx, o.ID)
}

func (s *CatalogService) DeleteOrganization(ctx context.Context, id int64) error {
	if err := s.storage.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	s.logger.InfoContext(ctx, "Organization deleted", log.FieldOrganizationID, id, log.FieldOperation, log.OpDelete)
	return nil
}

func (s *CatalogService) ListDepartments(ctx context.Context, organizationID int64) ([]core.Department, error) {
	return s.storage.ListDepartments(ctx, organizationID)
}

func (s *CatalogService) ListClients(ctx context.Context, projectID int64) ([]core.Client, error) {
	return s.storage.ListClients(ctx, projectID)
}

func (s *CatalogService) ListProjects(ctx context.Context, organizationID int64) ([]core.Project, error) {
	return s.storage.ListProjects(ctx, organizationID)
}

func (s *CatalogService) GetProject(ctx context.Context, id int64) (core.Project, error) {
	return s.storage.GetProject(ctx, id)
}

func (s *CatalogService) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	id, err := s.storage.CreateProject(ctx, p)
	if err != nil {
		return core.Project{}, err
	}
	stored, err := s.storage.GetProject(ctx, id)
	if err != nil {
		return core.Project{}, err
	}
	s.invalidate(stored.OrganizationID)
	return stored, nil
}

// UpdateProject applies patch. Moving a project between organizations
// invalidates both.
func (s *CatalogService) UpdateProject(ctx context.Context, id int64, patch core.ProjectPatch) (core.Project, error) {
	before, err := s.storage.GetProject(ctx, id)
	if err != nil {
		return core.Project{}, err
	}
	after, err := s.storage.UpdateProject(ctx, id, patch)
	if err != nil {
		return core.Project{}, err
	}
	s.invalidate(before.OrganizationID)
	if after.OrganizationID != before.OrganizationID {
		s.invalidate(after.OrganizationID)
	}
	return after, nil
}

func (s *CatalogService) DeleteProject(ctx context.Context, id int64) error {
	p, err := s.storage.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.invalidate(p.OrganizationID)
	return nil
}
