package catalog

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Plans []Plan `yaml:"plans"`
}

// LoadYAML reads a catalog document of the form:
//
//	plans:
//	  - name: shotgun-monthly
//	    product: Shotgun
//	    billing_period: MONTHLY
//	    price_list: DEFAULT
//	    phases:
//	      - type: TRIAL
//	        duration: {unit: DAYS, count: 30}
//	      - type: EVERGREEN
//	        duration: {unit: UNLIMITED}
func LoadYAML(r io.Reader) (*StaticCatalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	if len(doc.Plans) == 0 {
		return nil, errors.Join(ErrFailedToLoad, errors.New("no plans defined"))
	}

	c, err := New(doc.Plans...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return c, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return LoadYAML(bytes.NewReader(data))
}
