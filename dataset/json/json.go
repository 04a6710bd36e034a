/*
Package json reads datasets from JSON streams holding either an array
of objects or a sequence of objects (one per line, for instance).
*/
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pbanos/arboretum/dataset"
)

/*
ReadDataset takes an io.Reader for a JSON stream and returns a dataset
with the records decoded from it or an error.
*/
func ReadDataset(reader io.Reader) (dataset.Reader, error) {
	br := bufio.NewReader(reader)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return dataset.New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading JSON dataset: %v", err)
	}
	dec := json.NewDecoder(br)
	var records []dataset.Record
	if first == '[' {
		if err = dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decoding JSON dataset: %v", err)
		}
		return dataset.New(records), nil
	}
	for i := 0; ; i++ {
		r := dataset.Record{}
		err = dec.Decode(&r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding JSON record %d: %v", i, err)
		}
		records = append(records, r)
	}
	return dataset.New(records), nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if len(bytes.TrimSpace(b)) > 0 {
			return b[0], nil
		}
		if _, err = br.ReadByte(); err != nil {
			return 0, err
		}
	}
}

/*
ReadDatasetFromFilePath takes a filepath string, opens the file to which
it points (os.Stdin if it is "") and uses ReadDataset to return the
dataset read from it or an error.
*/
func ReadDatasetFromFilePath(filepath string) (dataset.Reader, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %v", err)
		}
		defer f.Close()
	}
	ds, err := ReadDataset(f)
	if err != nil {
		err = fmt.Errorf("parsing JSON file %s: %v", filepath, err)
	}
	return ds, err
}
