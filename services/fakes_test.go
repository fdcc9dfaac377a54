package services

import (
	"sort"
	"sync"

	"carebot-http-service/models"
)

// memoryStore 内存实现的持久化协作方，仅用于测试
// 读取返回副本，模拟锁内重读拿到独立快照的行为
type memoryStore struct {
	mu          sync.Mutex
	robots      map[uint]models.Robot
	elders      map[uint]models.Elder
	emergencies map[uint]models.Emergency
	nextID      uint

	// robotErr 指定某台机器人读取时返回的错误，用于模拟单台故障
	robotErr map[uint]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		robots:      make(map[uint]models.Robot),
		elders:      make(map[uint]models.Elder),
		emergencies: make(map[uint]models.Emergency),
		robotErr:    make(map[uint]error),
	}
}

func (s *memoryStore) putRobot(robot models.Robot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robots[robot.ID] = robot
}

func (s *memoryStore) putElder(elder models.Elder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elders[elder.ID] = elder
}

func (s *memoryStore) robot(id uint) models.Robot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.robots[id]
}

func (s *memoryStore) elder(id uint) models.Elder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elders[id]
}

func (s *memoryStore) emergency(id uint) models.Emergency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergencies[id]
}

func (s *memoryStore) GetRobotByID(id uint) (*models.Robot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.robotErr[id]; ok {
		return nil, err
	}
	robot, ok := s.robots[id]
	if !ok {
		return nil, ErrRobotNotFound
	}
	copied := robot
	return &copied, nil
}

func (s *memoryStore) GetRobotBySerial(serialNumber string) (*models.Robot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, robot := range s.robots {
		if robot.SerialNumber == serialNumber {
			copied := robot
			return &copied, nil
		}
	}
	return nil, ErrRobotNotFound
}

func (s *memoryStore) ListRobots() ([]models.Robot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	robots := make([]models.Robot, 0, len(s.robots))
	for _, robot := range s.robots {
		robots = append(robots, robot)
	}
	sort.Slice(robots, func(i, j int) bool { return robots[i].ID < robots[j].ID })
	return robots, nil
}

func (s *memoryStore) ListRobotsByGuardian(guardianID uint) ([]models.Robot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var robots []models.Robot
	for _, robot := range s.robots {
		elder, ok := s.elders[robot.ElderID]
		if ok && elder.GuardianID == guardianID {
			robots = append(robots, robot)
		}
	}
	sort.Slice(robots, func(i, j int) bool { return robots[i].ID < robots[j].ID })
	return robots, nil
}

func (s *memoryStore) SaveRobot(robot *models.Robot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robots[robot.ID] = *robot
	return nil
}

func (s *memoryStore) CreateRobot(robot *models.Robot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	robot.ID = s.nextID
	s.robots[robot.ID] = *robot
	return nil
}

func (s *memoryStore) DeleteRobot(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.robots, id)
	return nil
}

func (s *memoryStore) CountRobotsBySerial(serialNumber string, excludeID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, robot := range s.robots {
		if robot.SerialNumber == serialNumber && robot.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) GetElderByID(id uint) (*models.Elder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elder, ok := s.elders[id]
	if !ok {
		return nil, ErrElderNotFound
	}
	copied := elder
	return &copied, nil
}

func (s *memoryStore) ListEldersByGuardian(guardianID uint) ([]models.Elder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var elders []models.Elder
	for _, elder := range s.elders {
		if elder.GuardianID == guardianID {
			elders = append(elders, elder)
		}
	}
	sort.Slice(elders, func(i, j int) bool { return elders[i].ID < elders[j].ID })
	return elders, nil
}

func (s *memoryStore) ListElders() ([]models.Elder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elders := make([]models.Elder, 0, len(s.elders))
	for _, elder := range s.elders {
		elders = append(elders, elder)
	}
	sort.Slice(elders, func(i, j int) bool { return elders[i].ID < elders[j].ID })
	return elders, nil
}

func (s *memoryStore) SaveElder(elder *models.Elder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elders[elder.ID] = *elder
	return nil
}

func (s *memoryStore) CreateElder(elder *models.Elder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	elder.ID = s.nextID
	s.elders[elder.ID] = *elder
	return nil
}

func (s *memoryStore) DeleteElder(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elders, id)
	return nil
}

func (s *memoryStore) GetEmergencyByID(id uint) (*models.Emergency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emergency, ok := s.emergencies[id]
	if !ok {
		return nil, ErrEmergencyNotFound
	}
	copied := emergency
	return &copied, nil
}

func (s *memoryStore) CreateEmergency(emergency *models.Emergency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	emergency.ID = s.nextID
	s.emergencies[emergency.ID] = *emergency
	return nil
}

func (s *memoryStore) SaveEmergency(emergency *models.Emergency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergencies[emergency.ID] = *emergency
	return nil
}

func (s *memoryStore) HasPendingEmergency(elderID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, emergency := range s.emergencies {
		if emergency.ElderID == elderID && emergency.Resolution == models.ResolutionPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) ListEmergencies(page, pageSize int) ([]models.Emergency, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.Emergency, 0, len(s.emergencies))
	for _, emergency := range s.emergencies {
		all = append(all, emergency)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DetectedAt.After(all[j].DetectedAt) })
	return paginate(all, page, pageSize)
}

func (s *memoryStore) ListEmergenciesByGuardian(guardianID uint, page, pageSize int) ([]models.Emergency, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var scoped []models.Emergency
	for _, emergency := range s.emergencies {
		elder, ok := s.elders[emergency.ElderID]
		if ok && elder.GuardianID == guardianID {
			scoped = append(scoped, emergency)
		}
	}
	sort.Slice(scoped, func(i, j int) bool { return scoped[i].DetectedAt.After(scoped[j].DetectedAt) })
	return paginate(scoped, page, pageSize)
}

func paginate(all []models.Emergency, page, pageSize int) ([]models.Emergency, int64, error) {
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// recordingNotifier 记录所有推送调用的通知服务，仅用于测试
type recordingNotifier struct {
	mu           sync.Mutex
	robotStatus  []RobotStatusPayload
	robotLCD     []RobotLCDPayload
	elderStatus  []ElderStatusPayload
	userNotes    []UserNotificationPayload
	userNoteTo   []uint
	alerts       []EmergencyAlertPayload
}

func (n *recordingNotifier) PublishRobotStatus(robotID uint, payload RobotStatusPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.robotStatus = append(n.robotStatus, payload)
}

func (n *recordingNotifier) PublishRobotLCD(robotID uint, payload RobotLCDPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.robotLCD = append(n.robotLCD, payload)
}

func (n *recordingNotifier) PublishElderStatus(elderID uint, payload ElderStatusPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.elderStatus = append(n.elderStatus, payload)
}

func (n *recordingNotifier) PublishUserNotification(userID uint, payload UserNotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userNotes = append(n.userNotes, payload)
	n.userNoteTo = append(n.userNoteTo, userID)
}

func (n *recordingNotifier) PublishEmergencyAlert(payload EmergencyAlertPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, payload)
}

// publishedMessage 记录一次MQTT发布
type publishedMessage struct {
	topic   string
	payload []byte
}

// fakeMQTT 记录发布内容的MQTT传输实现，仅用于测试
type fakeMQTT struct {
	mu        sync.Mutex
	published []publishedMessage
	publishErr error
}

func (m *fakeMQTT) Connect() error { return nil }

func (m *fakeMQTT) Disconnect() {}

func (m *fakeMQTT) IsConnected() bool { return true }

func (m *fakeMQTT) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload})
	return nil
}
