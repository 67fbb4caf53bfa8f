package cards

import "cardgen/internal/models"

// Project builds the read-only view used for rendering. Numbers always track
// canonical position, so under reversal display position i shows card N-i+1.
func Project(set models.FlashcardSet, settings models.DisplaySettings) []models.ProjectedCard {
	n := len(set)
	out := make([]models.ProjectedCard, 0, n)
	for i := 0; i < n; i++ {
		idx := i
		if settings.Reversed {
			idx = n - 1 - i
		}
		out = append(out, models.ProjectedCard{
			Number:   idx + 1,
			Question: set[idx].Question,
			Answer:   set[idx].Answer,
			Expanded: settings.ShowAllExpanded,
		})
	}
	return out
}

// Reduce is the only transition for display settings.
func Reduce(settings models.DisplaySettings, action models.Action) models.DisplaySettings {
	switch action.Kind {
	case models.ActionToggleShowAll:
		settings.ShowAllExpanded = !settings.ShowAllExpanded
	case models.ActionToggleReverse:
		settings.Reversed = !settings.Reversed
	case models.ActionSetShowAll:
		settings.ShowAllExpanded = action.Value
	case models.ActionSetReversed:
		settings.Reversed = action.Value
	case models.ActionReset:
		settings = models.DisplaySettings{}
	}
	return settings
}
