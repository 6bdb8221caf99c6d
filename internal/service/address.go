package service

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/goombaio/namegenerator"
)

// AddressGenerator 生成形如 "{名称}.{四位数字}@{域名}" 的邮箱地址。
type AddressGenerator struct {
	mu     sync.Mutex
	names  namegenerator.Generator
	random *rand.Rand
	domain string
}

// NewAddressGenerator 创建地址生成器
func NewAddressGenerator(domain string) *AddressGenerator {
	seed := time.Now().UTC().UnixNano()
	return &AddressGenerator{
		names:  namegenerator.NewNameGenerator(seed),
		random: rand.New(rand.NewSource(seed ^ 0x5eed)),
		domain: domain,
	}
}

// Generate 生成一个新地址
func (g *AddressGenerator) Generate() string {
	g.mu.Lock()
	name := g.names.Generate()
	suffix := g.random.Intn(10000)
	g.mu.Unlock()

	return fmt.Sprintf("%s.%04d@%s", strings.ToLower(name), suffix, g.domain)
}

// Domain 返回生成地址使用的域名
func (g *AddressGenerator) Domain() string {
	return g.domain
}
