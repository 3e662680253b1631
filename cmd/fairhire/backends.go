package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/raaihank/fairhire/internal/embeddings"
	"github.com/raaihank/fairhire/internal/ner"
	"github.com/raaihank/fairhire/internal/server"
)

const heuristicHelp = `The default backends (gazetteer NER and hash embeddings) run without
trained models: names and places are found by word lists and scores reflect
shared words. Set ner.type and embeddings.type to gemini or onnx for model
backed results.`

// backends lists every NER and embedding backend, marking the active ones.
func backends(activeNER, activeEmbeddings string) []server.Backend {
	var out []server.Backend
	for _, name := range ner.Backends() {
		out = append(out, server.Backend{
			Kind:        "ner",
			Name:        name,
			Description: ner.Description(name),
			Heuristic:   ner.IsHeuristic(name),
			Active:      name == activeNER,
		})
	}
	for _, st := range embeddings.GetAllServiceTypes() {
		out = append(out, server.Backend{
			Kind:        "embeddings",
			Name:        string(st),
			Description: embeddings.GetServiceDescription(st),
			Heuristic:   embeddings.IsHeuristic(st),
			Active:      string(st) == activeEmbeddings,
		})
	}
	return out
}

// heuristicNotes warns about active backends that run without a model.
func heuristicNotes(activeNER, activeEmbeddings string) []string {
	var notes []string
	if ner.IsHeuristic(activeNER) {
		notes = append(notes, "ner backend "+activeNER+" uses word lists, not a trained model; redaction is heuristic")
	}
	if embeddings.IsHeuristic(embeddings.ServiceType(activeEmbeddings)) {
		notes = append(notes, "embeddings backend "+activeEmbeddings+" hashes words, not a trained model; scores reflect word overlap")
	}
	return notes
}

func printBackends(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tBACKEND\tMODEL\tDESCRIPTION")
	for _, b := range backends("", "") {
		model := "yes"
		if b.Heuristic {
			model = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Kind, b.Name, model, b.Description)
	}
	return tw.Flush()
}
