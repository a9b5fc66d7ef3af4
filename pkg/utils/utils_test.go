package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenUniqIDRequiresWorkerSetup(t *testing.T) {
	// 未初始化时直接生成会崩溃, 服务启动必须先初始化
	idWorker = nil
	assert.Panics(t, func() { GenUniqIDStr() })

	SetupIDWorker(1)
	a := GenUniqIDStr()
	b := GenUniqIDStr()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
