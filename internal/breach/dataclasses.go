// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package breach

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

//go:embed dataclasses.toml
var dataClassesTOML string

// English is the language the lookup API names data classes in.
const English = "en"

var (
	dataClassOnce  sync.Once
	dataClassTable map[string]map[string]string // lang -> English name -> display name
	dataClassErr   error
)

func loadDataClasses() {
	var file struct {
		Class []map[string]string `toml:"class"`
	}
	if _, err := toml.Decode(dataClassesTOML, &file); err != nil {
		dataClassErr = fmt.Errorf("parsing data class table: %w", err)
		return
	}

	dataClassTable = make(map[string]map[string]string)
	for _, entry := range file.Class {
		en := entry[English]
		if en == "" {
			continue
		}
		for lang, name := range entry {
			if lang == English {
				continue
			}
			if dataClassTable[lang] == nil {
				dataClassTable[lang] = make(map[string]string)
			}
			dataClassTable[lang][en] = name
		}
	}
}

// DataClassTableErr reports whether the embedded table failed to parse.
func DataClassTableErr() error {
	dataClassOnce.Do(loadDataClasses)
	return dataClassErr
}

// TranslateDataClass returns the display name of an English data class in
// lang (a BCP 47 tag such as "it" or "it-IT"). Unknown keywords and
// languages are returned unchanged.
func TranslateDataClass(lang, keyword string) string {
	dataClassOnce.Do(loadDataClasses)

	names := dataClassTable[baseLanguage(lang)]
	if name, ok := names[keyword]; ok {
		return name
	}
	return keyword
}

// TranslateDataClasses translates every keyword in order.
func TranslateDataClasses(lang string, keywords []string) []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = TranslateDataClass(lang, k)
	}
	return out
}

func baseLanguage(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	base, _ := tag.Base()
	return base.String()
}
