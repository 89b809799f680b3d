// scoring: merging and filtering of short-read mapping files.
// Copyright (c) 2017-2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntern(t *testing.T) {
	a := Intern("chr1")
	b := Intern(string([]byte("chr1")))
	c := Intern("chr2")
	assert.True(t, a == b)
	assert.False(t, a == c)
	assert.Equal(t, "chr1", *a)
}

func TestSmallMap(t *testing.T) {
	var m SmallMap
	nm, md := Intern("NM"), Intern("MD")
	m.Set(nm, int32(1))
	m.Set(md, "4A5")
	m.Set(nm, int32(2))
	assert.Len(t, m, 2)
	v, found := m.Get(nm)
	assert.True(t, found)
	assert.Equal(t, int32(2), v)
	_, found = m.Get(Intern("X0"))
	assert.False(t, found)
}

func TestStringMap(t *testing.T) {
	record := StringMap{}
	assert.True(t, record.SetUniqueEntry("ID", "bwa"))
	assert.False(t, record.SetUniqueEntry("ID", "bowtie"))
	assert.Equal(t, "bwa", record["ID"])

	name, found := record.FirstOf("PN", "ID")
	assert.True(t, found)
	assert.Equal(t, "bwa", name)
	_, found = record.FirstOf("PN")
	assert.False(t, found)
}
