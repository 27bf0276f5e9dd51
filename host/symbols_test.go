package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vkhristenko/scaroot/host"
)

func TestCShimNamer(t *testing.T) {
	n := host.CShimNamer{}
	assert.Equal(t, "TClingClassInfo_new", n.Constructor("TClingClassInfo"))
	assert.Equal(t, "TClingClassInfo_delete", n.Destructor("TClingClassInfo"))
	assert.Equal(t, "TClingClassInfo_Name", n.Member("TClingClassInfo", "Name"))

	assert.Equal(t, "ROOT_RFile_Open", n.Member("ROOT::RFile", "Open"))
	assert.Equal(t, "TMatrixT_double__new", n.Constructor("TMatrixT<double>"))
	assert.Equal(t, "TObject_operator__", n.Member("TObject", "operator()"))
	assert.Equal(t, "TObject_caf_", n.Member("TObject", "café"))

	prefixed := host.CShimNamer{Prefix: "cling_"}
	assert.Equal(t, "cling_TClingClassInfo_delete", prefixed.Destructor("TClingClassInfo"))
}
