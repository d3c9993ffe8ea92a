package resolver

import (
	"fmt"

	"github.com/chis/depsmith/internal/vcs"
)

// ResetBuildBranch makes vcs.BuildBranch the current branch of repo,
// pointing at commitID. The branch is created on first use and hard-reset
// afterwards, so its previous history is discarded.
func ResetBuildBranch(repo vcs.Repository, commitID string, logger Logger) error {
	logger = orNop(logger)

	branches, err := repo.Branches()
	if err != nil {
		return fmt.Errorf("failed to list branches of %s: %w", repo.Name(), err)
	}

	if _, ok := vcs.FindBranch(branches, vcs.BuildBranch); !ok {
		if err := repo.CreateBranch(vcs.BuildBranch, commitID); err != nil {
			return fmt.Errorf("failed to create %s branch in %s: %w", vcs.BuildBranch, repo.Name(), err)
		}
		if err := repo.Checkout(vcs.BuildBranch); err != nil {
			return fmt.Errorf("failed to check out %s branch in %s: %w", vcs.BuildBranch, repo.Name(), err)
		}
		logger.Debug("%s: created %s branch at %s", repo.Name(), vcs.BuildBranch, commitID)
		return nil
	}

	if err := repo.Checkout(vcs.BuildBranch); err != nil {
		return fmt.Errorf("failed to check out %s branch in %s: %w", vcs.BuildBranch, repo.Name(), err)
	}
	if err := repo.ResetHard(commitID); err != nil {
		return fmt.Errorf("failed to reset %s branch in %s: %w", vcs.BuildBranch, repo.Name(), err)
	}
	logger.Debug("%s: reset %s branch to %s", repo.Name(), vcs.BuildBranch, commitID)
	return nil
}
