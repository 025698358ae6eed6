package train

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"molnet/pkg/hyper"
)

// writeSummary persists a run result under
// <root>/<dataset>/<model><postfix>/summary<postfix_file>.json
// and returns the file path.
func writeSummary(root string, cfg *hyper.Config, result *Result) (string, error) {
	dir := filepath.Join(root, result.Dataset, cfg.Model.ClassName+cfg.Info.Postfix)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("train: creating result directory: %w", err)
	}
	path := filepath.Join(dir, "summary"+cfg.Info.PostfixFile+".json")

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("train: encoding summary: %w", err)
	}
	if err := ioutil.WriteFile(path, encoded, 0644); err != nil {
		return "", fmt.Errorf("train: writing summary: %w", err)
	}
	return path, nil
}
