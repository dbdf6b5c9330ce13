package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

type HierarchyPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewHierarchyPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.HierarchyRepository {
	return &HierarchyPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (h *HierarchyPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return h.db
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new hierarchy node and invalidates the tree cache
func (h *HierarchyPostgreSQL) Create(ctx context.Context, tx *gorm.DB, item *models.HierarchyItem) error {
	db := h.getDB(tx)
	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create hierarchy item: %w", err)
	}

	cache.InvalidateHierarchyCache(ctx, h.cacheManager, string(item.Type))
	return nil
}

// GetByID retrieves a hierarchy node by ID
func (h *HierarchyPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.HierarchyItem, error) {
	db := h.getDB(tx)
	var item models.HierarchyItem
	if err := db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("hierarchy item %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hierarchy item: %w", err)
	}
	return &item, nil
}

// Update updates a hierarchy node
func (h *HierarchyPostgreSQL) Update(ctx context.Context, tx *gorm.DB, item *models.HierarchyItem) error {
	db := h.getDB(tx)
	if err := db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("failed to update hierarchy item: %w", err)
	}

	cache.InvalidateHierarchyCache(ctx, h.cacheManager, string(item.Type))
	return nil
}

// Delete removes a single hierarchy node. Callers are responsible for
// ordering; deleting a node with children violates the parent FK.
func (h *HierarchyPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := h.getDB(tx)

	var item models.HierarchyItem
	if err := db.WithContext(ctx).Select("id, type").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("hierarchy item %d: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get hierarchy item before delete: %w", err)
	}

	if err := db.WithContext(ctx).Delete(&models.HierarchyItem{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete hierarchy item: %w", err)
	}

	cache.InvalidateHierarchyCache(ctx, h.cacheManager, string(item.Type))
	return nil
}

// ===== TREE OPERATIONS =====

// GetTree assembles the full tree for a taxonomy type. The tree is fetched
// flat in a single query and linked in memory, then cached whole; the trees
// are small (hundreds of nodes) and read often.
func (h *HierarchyPostgreSQL) GetTree(ctx context.Context, tx *gorm.DB, hierarchyType models.HierarchyType) ([]*models.HierarchyItem, error) {
	db := h.getDB(tx)
	cacheKey := fmt.Sprintf("tree:%s", hierarchyType)
	var roots []*models.HierarchyItem

	err := h.cacheManager.Hierarchy.CacheOrExecute(ctx, cacheKey, &roots, cache.HierarchyCacheConfig.TTL, func() (interface{}, error) {
		var items []*models.HierarchyItem
		if err := db.WithContext(ctx).
			Where("type = ?", hierarchyType).
			Order("\"order\" ASC, id ASC").
			Find(&items).Error; err != nil {
			return nil, fmt.Errorf("failed to load hierarchy items: %w", err)
		}
		return assembleTree(items), nil
	})
	if err != nil {
		return nil, err
	}

	return roots, nil
}

// assembleTree links a flat node list into root-anchored trees, preserving
// the incoming order within each sibling group.
func assembleTree(items []*models.HierarchyItem) []*models.HierarchyItem {
	byID := make(map[uint]*models.HierarchyItem, len(items))
	for _, item := range items {
		item.Children = []models.HierarchyItem{}
		byID[item.ID] = item
	}

	var roots []*models.HierarchyItem
	for _, item := range items {
		if item.ParentID == nil {
			roots = append(roots, item)
			continue
		}
		parent, ok := byID[*item.ParentID]
		if !ok {
			// Orphaned node, surface it at the root rather than dropping it.
			roots = append(roots, item)
			continue
		}
		parent.Children = append(parent.Children, *item)
	}

	if roots == nil {
		roots = []*models.HierarchyItem{}
	}
	return roots
}

// GetChildren retrieves the direct children of a node
func (h *HierarchyPostgreSQL) GetChildren(ctx context.Context, tx *gorm.DB, parentID uint) ([]*models.HierarchyItem, error) {
	db := h.getDB(tx)
	var items []*models.HierarchyItem
	if err := db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("\"order\" ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	return items, nil
}

// GetDescendants retrieves every node below the given one, breadth-first.
func (h *HierarchyPostgreSQL) GetDescendants(ctx context.Context, tx *gorm.DB, id uint) ([]*models.HierarchyItem, error) {
	db := h.getDB(tx)

	var descendants []*models.HierarchyItem
	frontier := []uint{id}
	for len(frontier) > 0 {
		var level []*models.HierarchyItem
		if err := db.WithContext(ctx).
			Where("parent_id IN ?", frontier).
			Order("\"order\" ASC, id ASC").
			Find(&level).Error; err != nil {
			return nil, fmt.Errorf("failed to get descendants: %w", err)
		}
		if len(level) == 0 {
			break
		}

		descendants = append(descendants, level...)
		frontier = frontier[:0]
		for _, item := range level {
			frontier = append(frontier, item.ID)
		}
	}

	return descendants, nil
}

// GetPath walks from the given node up to its root and returns the chain
// root-first, suitable for building a denormalized path snapshot.
func (h *HierarchyPostgreSQL) GetPath(ctx context.Context, tx *gorm.DB, id uint) ([]*models.HierarchyItem, error) {
	db := h.getDB(tx)

	var chain []*models.HierarchyItem
	currentID := &id
	for currentID != nil {
		var item models.HierarchyItem
		if err := db.WithContext(ctx).First(&item, *currentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("hierarchy item %d: %w", *currentID, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to walk hierarchy path: %w", err)
		}
		chain = append(chain, &item)
		currentID = item.ParentID

		if len(chain) > 16 {
			return nil, fmt.Errorf("hierarchy path too deep, possible cycle at item %d", id)
		}
	}

	// Reverse to root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain, nil
}

// ===== ROLLUP MAINTENANCE =====

// RecountQuestions refreshes the cached question count of a node from the
// questions table.
func (h *HierarchyPostgreSQL) RecountQuestions(ctx context.Context, tx *gorm.DB, id uint) error {
	db := h.getDB(tx)

	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("hierarchy_item_id = ?", id).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count questions for hierarchy item: %w", err)
	}

	if err := db.WithContext(ctx).
		Model(&models.HierarchyItem{}).
		Where("id = ?", id).
		Update("question_count", count).Error; err != nil {
		return fmt.Errorf("failed to update question count: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, h.cacheManager.Hierarchy, "tree:*")
	return nil
}
