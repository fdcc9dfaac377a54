package services

import "sync"

// KeyedMutex 按实体ID串行化读-改-写路径
// 心跳上报与后台巡检共用机器人锁，事件上报与处理共用老人锁，
// 避免两个写入方之间的丢失更新
type KeyedMutex struct {
	locks sync.Map // uint -> *sync.Mutex
}

// NewKeyedMutex 创建一个新的按键互斥锁
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock 锁定指定键，返回对应的解锁函数
func (m *KeyedMutex) Lock(key uint) func() {
	v, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
