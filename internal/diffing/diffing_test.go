package diffing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llchen223/fakereplace/internal/classfile"
	"github.com/llchen223/fakereplace/internal/data"
)

func greeterV1() *classfile.ClassFile {
	return &classfile.ClassFile{
		Name:      "com.acme.Greeter",
		SuperName: "java.lang.Object",
		Fields: []classfile.FieldInfo{
			{Name: "name", Descriptor: "Ljava/lang/String;", AccessFlags: classfile.AccPrivate},
		},
		Methods: []classfile.MethodInfo{
			{Name: "<init>", Descriptor: "()V", AccessFlags: classfile.AccPublic},
			{Name: "greet", Descriptor: "()Ljava/lang/String;", AccessFlags: classfile.AccPublic},
		},
	}
}

func baseOf(t *testing.T, cf *classfile.ClassFile) *data.BaseClassSnapshot {
	t.Helper()
	s, err := data.NewBaseClassSnapshot(cf, "app", true)
	require.NoError(t, err)
	return s
}

func TestComputeNoOpDiff(t *testing.T) {
	v, err := Compute(baseOf(t, greeterV1()), greeterV1())
	require.NoError(t, err)
	assert.False(t, v.HasChanges())
	assert.Empty(t, v.AddedMethods())
	assert.Empty(t, v.RemovedMethods())
	assert.Empty(t, v.AddedFields())
	assert.Empty(t, v.RemovedFields())
}

func TestComputeGreeterRedefinition(t *testing.T) {
	v2 := greeterV1()
	v2.Methods = []classfile.MethodInfo{
		{Name: "<init>", Descriptor: "()V", AccessFlags: classfile.AccPublic},
		{Name: "greet", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;", AccessFlags: classfile.AccPublic},
	}

	v, err := Compute(baseOf(t, greeterV1()), v2)
	require.NoError(t, err)

	removed := v.RemovedMethods()
	require.Len(t, removed, 1)
	assert.Equal(t, "greet", removed[0].Name)
	assert.Equal(t, "()Ljava/lang/String;", removed[0].Descriptor)
	assert.Equal(t, data.KindRemoved, removed[0].Kind)

	added := v.AddedMethods()
	require.Len(t, added, 1)
	assert.Equal(t, "greet", added[0].Name)
	assert.Equal(t, "(Ljava/lang/String;)Ljava/lang/String;", added[0].Descriptor)
	assert.Equal(t, data.KindAdded, added[0].Kind)
}

func TestComputeAddedConstructorsGetCounts(t *testing.T) {
	v2 := greeterV1()
	v2.Methods = append(v2.Methods,
		classfile.MethodInfo{Name: "<init>", Descriptor: "(I)V", AccessFlags: classfile.AccPublic},
		classfile.MethodInfo{Name: "<init>", Descriptor: "(J)V", AccessFlags: classfile.AccPublic},
	)
	v, err := Compute(baseOf(t, greeterV1()), v2)
	require.NoError(t, err)

	added := v.AddedMethods()
	require.Len(t, added, 2)
	counts := map[uint32]bool{}
	for _, m := range added {
		assert.True(t, m.IsConstructor())
		assert.Greater(t, m.ConstructorCount, uint32(0))
		counts[m.ConstructorCount] = true
	}
	assert.Len(t, counts, 2, "disambiguation counts must be distinct")
}

func TestComputeRejectsFinalMethodRemoval(t *testing.T) {
	v1 := greeterV1()
	v1.Methods = append(v1.Methods, classfile.MethodInfo{
		Name: "id", Descriptor: "()I", AccessFlags: classfile.AccPublic,
		Attributes: []string{classfile.FinalMarkerAttribute},
	})
	v2 := greeterV1() // no "id" method

	_, err := Compute(baseOf(t, v1), v2)
	var sv *data.StructuralViolationError
	require.True(t, errors.As(err, &sv), "expected structural violation, got %v", err)
	assert.Equal(t, "id()I", sv.Member)
}

func TestComputeRejectsFieldTypeChange(t *testing.T) {
	v2 := greeterV1()
	v2.Fields[0].Descriptor = "Ljava/lang/CharSequence;"

	_, err := Compute(baseOf(t, greeterV1()), v2)
	var sv *data.StructuralViolationError
	require.True(t, errors.As(err, &sv), "expected structural violation, got %v", err)
	assert.Equal(t, "name", sv.Member)
}

func TestComputeFieldAddAndRemove(t *testing.T) {
	v2 := greeterV1()
	v2.Fields = []classfile.FieldInfo{
		{Name: "salutation", Descriptor: "Ljava/lang/String;", AccessFlags: classfile.AccPrivate},
	}
	v, err := Compute(baseOf(t, greeterV1()), v2)
	require.NoError(t, err)

	require.Len(t, v.RemovedFields(), 1)
	assert.Equal(t, "name", v.RemovedFields()[0].Name)
	require.Len(t, v.AddedFields(), 1)
	assert.Equal(t, "salutation", v.AddedFields()[0].Name)
}

func TestComputeRejectsMismatchedClassName(t *testing.T) {
	other := greeterV1()
	other.Name = "com.acme.Other"
	_, err := Compute(baseOf(t, greeterV1()), other)
	require.Error(t, err)
}

func TestComputeIgnoresReservedSlots(t *testing.T) {
	v1 := greeterV1()
	v1.Methods = append(v1.Methods, classfile.MethodInfo{
		Name: data.AddedMethodName, Descriptor: data.AddedMethodDescriptor,
		AccessFlags: classfile.AccPublic | classfile.AccSynthetic,
	})
	// Source-level redefinitions never mention the engine's slots; their
	// absence is not a removal.
	v, err := Compute(baseOf(t, v1), greeterV1())
	require.NoError(t, err)
	assert.False(t, v.HasChanges())
}
