package orchestratornode

import (
	"errors"
)

var ErrNoArtifact = errors.New("no artifact was synthesized")

func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Artifact == nil {
		return GraphOutput{}, ErrNoArtifact
	}
	return GraphOutput{Artifact: in.Artifact}, nil
}
