package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// ShoppingListFilename is the attachment name of the downloaded list.
const ShoppingListFilename = "shopping_list.txt"

// ShoppingListService turns a user's cart into one line per distinct
// (ingredient name, unit) with the amounts summed across recipes.
type ShoppingListService struct {
	repo   repository.ShoppingListRepository
	logger *slog.Logger
}

func NewShoppingListService(repo repository.ShoppingListRepository, logger *slog.Logger) *ShoppingListService {
	return &ShoppingListService{repo: repo, logger: logger}
}

// Export returns the aggregated items, ordered by name then unit. An empty
// cart gives an empty (non-nil) slice.
func (s *ShoppingListService) Export(ctx context.Context, userID int64) ([]model.ShoppingItem, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}

	items, err := s.repo.ShoppingList(ctx, userID)
	if err != nil {
		s.logger.Error("failed to build shopping list",
			slog.Int64("user", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/shopping: exporting: %w", err)
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}

	metrics.RecordShoppingListExport()
	return items, nil
}

// Render formats items as "<name> (<unit>) - <amount>", one per line, each
// line ending in "\n". No items renders as the empty string.
func Render(items []model.ShoppingItem) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString(it.Name)
		b.WriteString(" (")
		b.WriteString(it.Unit)
		b.WriteString(") - ")
		b.WriteString(strconv.FormatInt(it.Amount, 10))
		b.WriteByte('\n')
	}
	return b.String()
}
