// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string `pack:"id=1"`
	Zip  string `pack:"id=2"`
}

type person struct {
	Name    string   `pack:"id=1,required"`
	Age     int32    `pack:"id=2"`
	Tags    []string `pack:"id=3"`
	Home    address  `pack:"id=4"`
	Balance uint64   `pack:"id=5"`
}

func TestMarshalUnmarshalStruct(t *testing.T) {
	in := person{
		Name:    "Ada",
		Age:     30,
		Tags:    []string{"engineer", "writer"},
		Home:    address{City: "London", Zip: "SW1"},
		Balance: 42,
	}

	data, err := Marshal(&in)
	require.NoError(t, err)

	var out person
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalElidesZeroFields(t *testing.T) {
	in := person{Name: "Zero"}
	data, err := Marshal(&in)
	require.NoError(t, err)

	var out person
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.Empty(t, out.Tags)
	assert.Zero(t, out.Age)
}

func TestMarshalRejectsDuplicateIDs(t *testing.T) {
	type dup struct {
		A string `pack:"id=1"`
		B string `pack:"id=1"`
	}
	_, err := Marshal(&dup{A: "x", B: "y"})
	assert.Error(t, err)
}
