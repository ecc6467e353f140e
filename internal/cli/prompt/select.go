package prompt

import (
	"strings"

	"github.com/manifoldco/promptui"
)

// selectPageSize is how many options are visible at once.
const selectPageSize = 10

// SelectOption is one choice of Select. Description, when set, is shown under
// the list for the highlighted option.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

var selectTemplates = &promptui.SelectTemplates{
	Label:    "{{ . }}",
	Active:   "> {{ .Label | cyan }}",
	Inactive: "  {{ .Label }}",
	Selected: "* {{ .Label | green }}",
	Details:  `{{ if .Description }}{{ .Description | faint }}{{ end }}`,
}

// Select shows options and returns the value of the chosen one. Typing "/"
// filters options by label.
func Select(label string, options []SelectOption) (string, error) {
	p := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: selectTemplates,
		Size:      selectPageSize,
		Searcher: func(input string, i int) bool {
			return strings.Contains(strings.ToLower(options[i].Label), strings.ToLower(strings.TrimSpace(input)))
		},
	}

	i, _, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}
