package eventbus

// Bus 服务层发布事件所需的最小接口
type Bus interface {
	PublishAsync(topic string, args ...interface{})
	Subscribe(topic string, fn interface{}) error
}

// Nop 丢弃所有事件，用于未启用事件总线的场景
type Nop struct{}

func (Nop) PublishAsync(string, ...interface{}) {}
func (Nop) Subscribe(string, interface{}) error { return nil }
