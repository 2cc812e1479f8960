package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"gorm.io/gorm"
)

// WorkspaceService manages workspaces and membership.
type WorkspaceService struct {
	db *gorm.DB
}

func NewWorkspaceService(db *gorm.DB) *WorkspaceService {
	return &WorkspaceService{db: db}
}

type WorkspaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *WorkspaceService) CreateWorkspace(ctx context.Context, ownerID uint, req *WorkspaceRequest) (*models.Workspace, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("workspace name required")
	}
	workspace := &models.Workspace{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(workspace).Error; err != nil {
			return err
		}
		member := &models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      ownerID,
			Role:        "admin",
			CreatedAt:   time.Now(),
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return workspace, nil
}

func (s *WorkspaceService) GetWorkspace(ctx context.Context, id uint) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := s.db.WithContext(ctx).Preload("Members").First(&workspace, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("workspace not found")
		}
		return nil, err
	}
	return &workspace, nil
}

// ListWorkspaces returns workspaces the user belongs to.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, userID uint) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	err := s.db.WithContext(ctx).
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspace_members.user_id = ?", userID).
		Order("workspaces.id ASC").
		Find(&workspaces).Error
	if err != nil {
		return nil, err
	}
	return workspaces, nil
}

func (s *WorkspaceService) UpdateWorkspace(ctx context.Context, id uint, req *WorkspaceRequest) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := s.db.WithContext(ctx).First(&workspace, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("workspace not found")
		}
		return nil, err
	}
	if req.Name != "" {
		workspace.Name = req.Name
	}
	workspace.Description = req.Description
	workspace.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Workspace{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("workspace not found")
	}
	return nil
}

// AddMember adds or updates a workspace member's role.
func (s *WorkspaceService) AddMember(ctx context.Context, workspaceID, userID uint, role string) (*models.WorkspaceMember, error) {
	if role == "" {
		role = "member"
	}
	var existing models.WorkspaceMember
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&existing).Error
	if err == nil {
		existing.Role = role
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (s *WorkspaceService) RemoveMember(ctx context.Context, workspaceID, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&models.WorkspaceMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("member not found")
	}
	return nil
}
