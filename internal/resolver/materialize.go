package resolver

import (
	"fmt"
	"strings"

	"github.com/chis/depsmith/internal/vcs"
)

// MaterializeRemoteBranches gives every remote branch of repo a local branch
// of the same name tracking it, and returns the names of the branches it
// created. With onlyUntracked, remote branches that already have a local
// counterpart are left alone; otherwise the existing local branch keeps its
// tip and only has its upstream set.
func MaterializeRemoteBranches(repo vcs.Repository, onlyUntracked bool, logger Logger) ([]string, error) {
	logger = orNop(logger)

	remotes, err := repo.RemoteBranches()
	if err != nil {
		return nil, fmt.Errorf("failed to list remote branches of %s: %w", repo.Name(), err)
	}
	locals, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches of %s: %w", repo.Name(), err)
	}

	var created []string
	for _, rb := range remotes {
		remote, name, ok := strings.Cut(rb.Name, "/")
		if !ok || remote == "" || name == "" {
			return created, fmt.Errorf("remote branch %q of %s is not remote-qualified", rb.Name, repo.Name())
		}

		_, exists := vcs.FindBranch(locals, name)
		if exists && onlyUntracked {
			logger.Debug("%s: %s already has local branch %s", repo.Name(), rb.Name, name)
			continue
		}

		if !exists {
			if err := repo.CreateBranch(name, rb.Tip); err != nil {
				return created, fmt.Errorf("failed to create branch %s from %s: %w", name, rb.Name, err)
			}
			locals = append(locals, vcs.Branch{Name: name, Tip: rb.Tip})
			created = append(created, name)
		}

		if err := repo.SetUpstream(name, remote, name); err != nil {
			return created, fmt.Errorf("failed to track %s from %s: %w", rb.Name, name, err)
		}
		logger.Debug("%s: branch %s tracks %s", repo.Name(), name, rb.Name)
	}

	if len(created) > 0 {
		logger.Info("%s: created %d local branches from remotes", repo.Name(), len(created))
	}
	return created, nil
}
