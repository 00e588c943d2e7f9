package rlang

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFunctionDefinition(t *testing.T) {
	code := "# helpers\n\nf <- function(x, y) {}\n"

	res, err := Extract(code)
	require.NoError(t, err)
	require.Len(t, res.Definitions, 1)

	def := res.Definitions[0]
	assert.Equal(t, DefinitionFunction, def.Kind)
	assert.Equal(t, "f", def.Name)
	assert.Equal(t, []Param{{Name: "x"}, {Name: "y"}}, def.Signature)
	assert.Equal(t, 3, def.Line)
	assert.Equal(t, 1, def.Column)
	assert.Equal(t, 0, def.BraceLevel)
}

func TestExtractAssignmentForms(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		want   string
		params []Param
	}{
		{"left arrow", "a <- function() NULL", "a", nil},
		{"super assignment", "b <<- function(...) NULL", "b", []Param{{Name: "..."}}},
		{"equals", "c = function(x = 1, y = list(1, 2)) x", "c", []Param{{Name: "x"}, {Name: "y"}}},
		{"quoted name", `"d" <- function(z) z`, "d", []Param{{Name: "z"}}},
		{"backtick name", "`%+%` <- function(e1, e2) e1", "%+%", []Param{{Name: "e1"}, {Name: "e2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Extract(tt.code)
			require.NoError(t, err)
			require.Len(t, res.Definitions, 1)
			assert.Equal(t, tt.want, res.Definitions[0].Name)
			assert.Equal(t, tt.params, res.Definitions[0].Signature)
		})
	}
}

func TestExtractNestedBraceLevel(t *testing.T) {
	code := "outer <- function() {\n  inner <- function(a) {\n    a\n  }\n}\nafter <- function() 1\n"

	res, err := Extract(code)
	require.NoError(t, err)
	require.Len(t, res.Definitions, 3)

	assert.Equal(t, "outer", res.Definitions[0].Name)
	assert.Equal(t, 0, res.Definitions[0].BraceLevel)
	assert.Equal(t, "inner", res.Definitions[1].Name)
	assert.Equal(t, 1, res.Definitions[1].BraceLevel)
	assert.Equal(t, 2, res.Definitions[1].Line)
	assert.Equal(t, 3, res.Definitions[1].Column)
	assert.Equal(t, "after", res.Definitions[2].Name)
	assert.Equal(t, 0, res.Definitions[2].BraceLevel)
}

func TestExtractIgnoresNamedArguments(t *testing.T) {
	code := "lapply(xs, FUN = function(x) x)\nobj$method <- function() 1\n"

	res, err := Extract(code)
	require.NoError(t, err)
	assert.Empty(t, res.Definitions)
}

func TestExtractS4(t *testing.T) {
	code := `
setClass("Person", representation(name = "character"))
setRefClass(Class = "Account")
setGeneric("greet", function(obj, ...) standardGeneric("greet"))
setMethod("greet", "Person", function(obj, ...) cat("hi"))
setMethod("combine", signature("Person", y = "Account"), function(x, y) NULL)
setMethod("show", c(object = "Person"), function(object) NULL)
`
	res, err := Extract(code)
	require.NoError(t, err)
	require.Len(t, res.Definitions, 6)

	assert.Equal(t, Definition{Kind: DefinitionClass, Name: "Person", Line: 2, Column: 10}, res.Definitions[0])
	assert.Equal(t, DefinitionClass, res.Definitions[1].Kind)
	assert.Equal(t, "Account", res.Definitions[1].Name)
	assert.Equal(t, DefinitionFunction, res.Definitions[2].Kind)
	assert.Equal(t, "greet", res.Definitions[2].Name)

	assert.Equal(t, DefinitionMethod, res.Definitions[3].Kind)
	assert.Equal(t, []Param{{Type: "Person"}}, res.Definitions[3].Signature)

	assert.Equal(t, "combine", res.Definitions[4].Name)
	assert.Equal(t, []Param{{Type: "Person"}, {Name: "y", Type: "Account"}}, res.Definitions[4].Signature)

	assert.Equal(t, "show", res.Definitions[5].Name)
	assert.Equal(t, []Param{{Name: "object", Type: "Person"}}, res.Definitions[5].Signature)
}

func TestExtractR6Class(t *testing.T) {
	res, err := Extract("Queue <- R6::R6Class(\"Queue\", public = list(add = function(x) x))\n")
	require.NoError(t, err)
	require.Len(t, res.Definitions, 1)
	assert.Equal(t, DefinitionClass, res.Definitions[0].Kind)
	assert.Equal(t, "Queue", res.Definitions[0].Name)
}

func TestExtractPackages(t *testing.T) {
	code := `
library(dplyr)
require("tidyr")
requireNamespace("jsonlite", quietly = TRUE)
x <- stats::median(1:3)
y <- utils:::head
z <- list$library
`
	res, err := Extract(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"dplyr", "jsonlite", "stats", "tidyr", "utils"}, res.Packages)
}

func TestExtractPackagesCharacterOnly(t *testing.T) {
	code := `
for (pkg in pkgs) library(pkg, character.only = TRUE)
require(name, character.only = T)
library("glue", character.only = TRUE)
library(rlang, character.only = FALSE)
`
	res, err := Extract(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"glue", "rlang"}, res.Packages)
}

func TestExtractMalformed(t *testing.T) {
	_, err := Extract("f <- function() \"oops\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedString))

	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, 1, syntaxErr.Line)
	assert.Equal(t, 17, syntaxErr.Column)
}

func TestExtractorType(t *testing.T) {
	var ex Extractor
	res, err := ex.Extract("g <- function() 1")
	require.NoError(t, err)
	require.Len(t, res.Definitions, 1)
}
