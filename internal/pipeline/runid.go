package pipeline

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/healthaccess/internal/config"
)

var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("healthaccess/run"))

// RunID derives a run id from the input file contents and every setting that
// changes the analysis, so identical runs share an id and an identical report.
func RunID(cfg *config.Config) (string, error) {
	h := sha256.New()
	for _, path := range []string{cfg.Inputs.Facilities, cfg.Inputs.Population, cfg.Inputs.RUCC} {
		sum, err := fileDigest(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%x\n", sum)
	}
	a := cfg.Analysis
	fmt.Fprintf(h, "state=%s metro=%d desert=%g top=%d roster=%t sheet=%s attr=%s enc=%s\n",
		a.StateFIPS, a.RUCCMetroMax, a.DesertThreshold, a.TopN, a.IncludeZeroFacilityCounties,
		cfg.Inputs.FacilitySheet, cfg.Inputs.RUCCAttribute, cfg.Inputs.RUCCEncoding)
	return uuid.NewSHA1(runNamespace, h.Sum(nil)).String(), nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: run id: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, eris.Wrapf(err, "pipeline: run id: read %s", path)
	}
	return h.Sum(nil), nil
}
