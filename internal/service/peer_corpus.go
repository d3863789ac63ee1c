package service

import (
	"context"

	"github.com/noah-isme/gema-autograder/internal/grading/similarity"
	"github.com/noah-isme/gema-autograder/internal/repository"
)

// PeerCorpus serves the latest submission of each other student to the similarity detector.
type PeerCorpus struct {
	repo repository.CodeSubmissionRepository
}

// NewPeerCorpus wraps the submission repository.
func NewPeerCorpus(repo repository.CodeSubmissionRepository) *PeerCorpus {
	return &PeerCorpus{repo: repo}
}

// ListPeers implements grading.PeerSource.
func (c *PeerCorpus) ListPeers(ctx context.Context, activityID, excludeStudentID uint) ([]similarity.Peer, error) {
	rows, err := c.repo.ListPeers(ctx, activityID, excludeStudentID)
	if err != nil {
		return nil, err
	}

	peers := make([]similarity.Peer, 0, len(rows))
	for _, row := range rows {
		peers = append(peers, similarity.Peer{SubmissionID: row.ID, Code: row.Code})
	}
	return peers, nil
}
