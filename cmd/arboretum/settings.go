package main

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

/*
applySettings takes a command and the path to a YAML settings file
and sets the flags of the command that were not given on the command
line to the values in the file, which is a mapping of flag names to
values. Nothing is done if the path is empty.
*/
func applySettings(cmd *cobra.Command, filepath string) error {
	if filepath == "" {
		return nil
	}
	data, err := ioutil.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("reading settings from %s: %v", filepath, err)
	}
	settings := map[string]interface{}{}
	if err = yaml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("parsing settings from %s: %v", filepath, err)
	}
	for name, value := range settings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			// settings for other commands
			continue
		}
		if f.Changed || value == nil {
			continue
		}
		if err = cmd.Flags().Set(name, fmt.Sprintf("%v", value)); err != nil {
			return fmt.Errorf("setting %s from %s: %v", name, filepath, err)
		}
	}
	return nil
}
