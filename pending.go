package auth

import "context"

// ActionDownloadCV is the deferred action recorded when a visitor tries to
// download the CV before signing in.
const ActionDownloadCV = "download-cv"

// RecordPendingAction remembers an action to replay once the visitor has
// authenticated.
func RecordPendingAction(ctx context.Context, store Store, action string) error {
	if action == "" {
		return nil
	}
	return store.SetString(ctx, KeyPendingAction, action)
}

// ConsumePendingAction returns the recorded action and clears it. The second
// return is false when nothing was pending. Consumption happens at most once
// per recorded action.
func ConsumePendingAction(ctx context.Context, store Store) (string, bool) {
	action, ok := store.GetString(ctx, KeyPendingAction)
	if !ok || action == "" {
		return "", false
	}
	if err := store.Delete(ctx, KeyPendingAction); err != nil {
		return "", false
	}
	return action, true
}
