// Demo program that runs Hindi transfer phrases through intent extraction
// and prints the detected intent and parameters for each.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/bankintent/internal/model"
	"github.com/ppiankov/bankintent/internal/pipeline"
	"github.com/ppiankov/bankintent/internal/rules"
)

func main() {
	registry, err := rules.Load("", model.DefaultLanguage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load rules: %v\n", err)
		os.Exit(1)
	}
	p, err := pipeline.New(registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build pipeline: %v\n", err)
		os.Exit(1)
	}

	sections := []struct {
		title   string
		phrases []string
	}{
		{
			title: "Hindi number words",
			phrases: []string{
				"जॉन को सौ रुपये भेजिए",
				"राम को दो सौ रुपये भेजें",
				"सीता को एक हजार रुपया भेजें",
				"अनिल को पांच सौ रुपये ट्रांसफर करें",
				"मोहन को पचास रुपये भेजिए",
				"राधा को दो हजार पांच सौ भेजें",
				"विकास को 100 रुपये भेजो",
				"संजय को एक सौ बीस रुपये भेज दो",
				"गीता को दो करोड़ रुपये भेजो",
			},
		},
		{
			title: "Hindi transfer phrasing",
			phrases: []string{
				"जॉन को सौ रुपये भेजिए",
				"राम को दो सौ रुपये ट्रांसफर करें",
				"सीता को हजार रुपया भेज दीजिए",
				"अनिल को पांच सौ भेजो",
			},
		},
	}

	for _, section := range sections {
		fmt.Printf("=== %s ===\n\n", section.title)

		for _, phrase := range section.phrases {
			ext := p.Extract(phrase, "hi-IN")
			params, err := json.Marshal(ext.Result.Parameters)
			if err != nil {
				params = []byte("{}")
			}

			fmt.Printf("Phrase:     %s\n", phrase)
			fmt.Printf("Intent:     %s (%s)\n", ext.Result.IntentType, ext.Strategy)
			fmt.Printf("Parameters: %s\n", params)
			fmt.Println(strings.Repeat("-", 50))
		}
		fmt.Println()
	}
}
