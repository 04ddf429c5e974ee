package outlook

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"golang.org/x/oauth2"
)

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

// isNotFound reports whether a Graph error is a 404/410 for the resource.
func isNotFound(err error) bool {
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		code := odataErr.ResponseStatusCode
		return code == 404 || code == 410
	}
	return false
}

// tokenFromFile reads an OAuth token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
