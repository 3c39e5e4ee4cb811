package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"agroassist/croprec/croprec"
)

type saveOptions struct {
	documentID string
	crops      []string
	numericID  bool
}

func newSaveCmd(root *rootOptions) *cobra.Command {
	opts := &saveOptions{}
	cmd := &cobra.Command{
		Use:     "save",
		Short:   "Persist a crop selection for a document id from an earlier prediction",
		Example: "  croprec-cli save --document-id abc123 --crop rice --crop maize",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.documentID, "document-id", "", "Document id returned by predict")
	cmd.Flags().StringArrayVar(&opts.crops, "crop", nil, "Selected crop (repeatable)")
	cmd.Flags().BoolVar(&opts.numericID, "numeric-id", false, "Send the document id as a JSON number")
	_ = cmd.MarkFlagRequired("document-id")
	return cmd
}

func runSave(cmd *cobra.Command, root *rootOptions, opts *saveOptions) error {
	id, err := parseDocumentID(opts.documentID, opts.numericID)
	if err != nil {
		return err
	}
	crops := make([]string, 0, len(opts.crops))
	for _, crop := range opts.crops {
		if crop = strings.TrimSpace(crop); crop != "" {
			crops = append(crops, crop)
		}
	}
	resp, err := root.client().SaveSelection(cmd.Context(), croprec.SaveRequest{
		SelectedCrops: crops,
		DocumentID:    id,
	})
	if err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	msg := resp.Message
	if msg == "" {
		msg = "Selection saved."
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func parseDocumentID(raw string, numeric bool) (croprec.TrackingID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return croprec.TrackingID{}, errors.New("--document-id is empty")
	}
	if !numeric {
		return croprec.NewTrackingID(raw), nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return croprec.TrackingID{}, fmt.Errorf("--document-id %q is not a number", raw)
	}
	id, err := croprec.RawTrackingID([]byte(raw))
	if err != nil {
		return croprec.TrackingID{}, err
	}
	if id.Empty() {
		return croprec.TrackingID{}, fmt.Errorf("--document-id %q does not identify a prediction", raw)
	}
	return id, nil
}
