package catalog

// Статический контент курса SMC Quest: 8 модулей, по три квеста на модуль
// (задание, квиз, босс), квизы и бейджи.

// Идентификаторы бейджей. Вручение идемпотентно, отзыв не предусмотрен.
const (
	BadgeFirstQuest     = "first_quest"
	BadgeQuizPerfect    = "quiz_perfect"
	BadgeStreak7        = "streak_7"
	BadgeStreak30       = "streak_30"
	BadgeBossSlayer     = "boss_slayer"
	BadgeCourseComplete = "course_complete"
)

// Default собирает каталог курса и валидирует его целостность.
func Default() (*StaticCatalog, error) {
	return NewStaticCatalog(defaultModules(), defaultQuests(), defaultQuizzes(), defaultBadges(), []int{0})
}

func defaultModules() []Module {
	return []Module{
		{
			Index:    0,
			Key:      "basics",
			Title:    "Модуль 1: Основы SMC и таймфреймы",
			Homework: "Сделай Top-Down анализ (D1, H4, H1, M15) по одной паре. Опиши тренд на каждом ТФ и общий вывод.",
		},
		{
			Index:    1,
			Key:      "structure",
			Title:    "Модуль 2: Структура рынка и Inducement",
			Homework: "Найди примеры BOS, CHoCH и Inducement. Скрины + подписи.",
		},
		{
			Index:    2,
			Key:      "liquidity",
			Title:    "Модуль 3: Ликвидность и пулы",
			Homework: "Сделай карту ликвидности: BSL/SSL, Equal Highs/Lows, один sweep.",
		},
		{
			Index:    3,
			Key:      "poi",
			Title:    "Модуль 4: Order Blocks и FVG",
			Homework: "2 бычьих и 2 медвежьих OB + 3 FVG и их отработка.",
		},
		{
			Index:    4,
			Key:      "advanced_blocks",
			Title:    "Модуль 5: Breaker и Mitigation Blocks",
			Homework: "Найди по одному примеру Breaker и Mitigation Block и опиши разницу.",
		},
		{
			Index:    5,
			Key:      "zones_sessions",
			Title:    "Модуль 6: Зоны, OTE и Kill Zones",
			Homework: "Разметь Premium/Discount, OTE и Kill Zones на одном активе.",
		},
		{
			Index:    6,
			Key:      "advanced_models",
			Title:    "Модуль 7: AMD, Po3, MMM",
			Homework: "Разбери 3 дня по AMD/Po3 (накопление, манипуляция, движение).",
		},
		{
			Index:    7,
			Key:      "strategies",
			Title:    "Модуль 8: Стратегии, риск, психология",
			Homework: "Неделя демо-торговли по SMC с дневником сделок.",
		},
	}
}

func defaultQuests() []Quest {
	return []Quest{
		// Модуль 1
		{ID: "m1_task", ModuleIndex: 0, Title: "Миссия 1-1: Первый взгляд", Type: QuestTask, XPReward: 25,
			Description: "Сделай скрин D1 любой пары и опиши тренд (HH/HL или LL/LH)."},
		{ID: "m1_quiz", ModuleIndex: 0, Title: "Миссия 1-2: Квиз по основам", Type: QuestQuiz, XPReward: 35, QuizRef: "basics_quiz"},
		{ID: "m1_boss", ModuleIndex: 0, Title: "БОСС 1: Top-Down", Type: QuestTask, XPReward: 50,
			Description: "Полный Top-Down: D1, H4, H1, M15 + вывод и обоснование направления."},
		// Модуль 2
		{ID: "m2_task", ModuleIndex: 1, Title: "Миссия 2-1: Структура", Type: QuestTask, XPReward: 30,
			Description: "Найди тренд и один BOS на H1/H4. Скрин + подпись."},
		{ID: "m2_quiz", ModuleIndex: 1, Title: "Миссия 2-2: Квиз по структуре", Type: QuestQuiz, XPReward: 40, QuizRef: "structure_quiz"},
		{ID: "m2_boss", ModuleIndex: 1, Title: "БОСС 2: Inducement", Type: QuestTask, XPReward: 60,
			Description: "Найди пример Inducement + sweep + разворот. Скрин с разметкой."},
		// Модуль 3
		{ID: "m3_task", ModuleIndex: 2, Title: "Миссия 3-1: Карта ликвидности", Type: QuestTask, XPReward: 30,
			Description: "Разметь BSL/SSL и один sweep на H1."},
		{ID: "m3_quiz", ModuleIndex: 2, Title: "Миссия 3-2: Квиз по ликвидности", Type: QuestQuiz, XPReward: 40, QuizRef: "liquidity_quiz"},
		{ID: "m3_boss", ModuleIndex: 2, Title: "БОСС 3: Sweep и движение", Type: QuestTask, XPReward: 65,
			Description: "Найди sweep уровня и последующее движение. Опиши логику."},
		// Модуль 4
		{ID: "m4_task", ModuleIndex: 3, Title: "Миссия 4-1: Охота на OB", Type: QuestTask, XPReward: 35,
			Description: "Найди 2 бычьих и 2 медвежьих OB. Скрины + описание."},
		{ID: "m4_quiz", ModuleIndex: 3, Title: "Миссия 4-2: Квиз по POI", Type: QuestQuiz, XPReward: 40, QuizRef: "poi_quiz"},
		{ID: "m4_boss", ModuleIndex: 3, Title: "БОСС 4: OB + FVG", Type: QuestTask, XPReward: 70,
			Description: "Найди зону, где совпадают OB и FVG, и её отработку."},
		// Модуль 5
		{ID: "m5_task", ModuleIndex: 4, Title: "Миссия 5-1: Breaker vs Mitigation", Type: QuestTask, XPReward: 35,
			Description: "Найди по одному примеру Breaker и Mitigation Block."},
		{ID: "m5_quiz", ModuleIndex: 4, Title: "Миссия 5-2: Квиз по блокам", Type: QuestQuiz, XPReward: 40, QuizRef: "advanced_blocks_quiz"},
		{ID: "m5_boss", ModuleIndex: 4, Title: "БОСС 5: Эволюция блока", Type: QuestTask, XPReward: 70,
			Description: "Покажи путь OB → Breaker → ретест."},
		// Модуль 6
		{ID: "m6_task", ModuleIndex: 5, Title: "Миссия 6-1: Зоны и OTE", Type: QuestTask, XPReward: 35,
			Description: "Построй Premium/Discount + OTE на H4."},
		{ID: "m6_quiz", ModuleIndex: 5, Title: "Миссия 6-2: Квиз по зонам", Type: QuestQuiz, XPReward: 45, QuizRef: "zones_quiz"},
		{ID: "m6_boss", ModuleIndex: 5, Title: "БОСС 6: Снайперский вход", Type: QuestTask, XPReward: 75,
			Description: "Собери идеальный сетап: OTE + OB/FVG + Kill Zone."},
		// Модуль 7
		{ID: "m7_task", ModuleIndex: 6, Title: "Миссия 7-1: AMD на деле", Type: QuestTask, XPReward: 40,
			Description: "Разметь Accumulation, Manipulation, Distribution за один торговый день."},
		{ID: "m7_quiz", ModuleIndex: 6, Title: "Миссия 7-2: Квиз по моделям", Type: QuestQuiz, XPReward: 45, QuizRef: "advanced_models_quiz"},
		{ID: "m7_boss", ModuleIndex: 6, Title: "БОСС 7: Прогноз дня", Type: QuestTask, XPReward: 80,
			Description: "Сделай прогноз по Po3/AMD на следующий день."},
		// Модуль 8
		{ID: "m8_task", ModuleIndex: 7, Title: "Миссия 8-1: Сделка по ICT 2022", Type: QuestTask, XPReward: 50,
			Description: "Сделай одну сделку по ICT 2022 на демо и разбор."},
		{ID: "m8_quiz", ModuleIndex: 7, Title: "Миссия 8-2: Финальный квиз", Type: QuestQuiz, XPReward: 50, QuizRef: "strategies_quiz"},
		{ID: "m8_boss", ModuleIndex: 7, Title: "ФИНАЛЬНЫЙ БОСС: Торговая неделя", Type: QuestTask, XPReward: 150,
			Description: "Неделя торговли на демо по SMC с дневником сделок."},
	}
}

func defaultQuizzes() map[string][]QuizQuestion {
	return map[string][]QuizQuestion{
		"basics_quiz": {
			{
				Text: "Кто такие Smart Money?",
				Options: []QuizOption{
					{Text: "Крупные институциональные игроки", Correct: true},
					{Text: "Розничные трейдеры"},
					{Text: "Маркетинговые агентства"},
					{Text: "Криптоинфлюенсеры"},
				},
			},
			{
				Text: "С какого ТФ начинать Top-Down анализ?",
				Options: []QuizOption{
					{Text: "С W1/D1", Correct: true},
					{Text: "С M1"},
					{Text: "С H1"},
					{Text: "С любого — неважно"},
				},
			},
			{
				Text: "Какова главная цель методологии SMC?",
				Options: []QuizOption{
					{Text: "Торговать вместе с институциональными игроками", Correct: true},
					{Text: "Угадывать новости"},
					{Text: "Использовать RSI и MACD"},
					{Text: "Торговать против тренда"},
				},
			},
		},
		"structure_quiz": {
			{
				Text: "Что такое BOS?",
				Options: []QuizOption{
					{Text: "Пробой экстремума по направлению тренда", Correct: true},
					{Text: "Любой gap на графике"},
					{Text: "Любой пробой уровня поддержки"},
					{Text: "Смена тренда"},
				},
			},
			{
				Text: "CHoCH — это...",
				Options: []QuizOption{
					{Text: "Смена характера структуры, возможный разворот", Correct: true},
					{Text: "Продолжение тренда"},
					{Text: "Открытие новой сессии"},
					{Text: "Fair Value Gap"},
				},
			},
			{
				Text: "Что означает Inducement?",
				Options: []QuizOption{
					{Text: "Видимый уровень-ловушка для сбора стопов толпы", Correct: true},
					{Text: "Сильный тренд"},
					{Text: "Уровень поддержки D1"},
					{Text: "Техника управления рисками"},
				},
			},
		},
		"liquidity_quiz": {
			{
				Text: "BSL — это ликвидность...",
				Options: []QuizOption{
					{Text: "Над максимумами (стопы продавцов)", Correct: true},
					{Text: "Под минимумами"},
					{Text: "В середине дневного диапазона"},
					{Text: "На открытии рынка"},
				},
			},
			{
				Text: "Sweep — это...",
				Options: []QuizOption{
					{Text: "Ложный пробой уровня ликвидности", Correct: true},
					{Text: "Пробой с закреплением"},
					{Text: "Fair Value Gap"},
					{Text: "Двойная вершина"},
				},
			},
			{
				Text: "Что такое Equal Highs?",
				Options: []QuizOption{
					{Text: "Два или более максимума на одном уровне — видимая ликвидность", Correct: true},
					{Text: "Равные объёмы двух сессий"},
					{Text: "Уровень 50% по Фибо"},
					{Text: "Дневная средняя"},
				},
			},
		},
		"poi_quiz": {
			{
				Text: "Бычий OB — это...",
				Options: []QuizOption{
					{Text: "Последняя медвежья свеча перед импульсом вверх", Correct: true},
					{Text: "Любая зелёная свеча"},
					{Text: "Любой минимум на графике"},
					{Text: "Уровень 50% по Фибо"},
				},
			},
			{
				Text: "FVG — это...",
				Options: []QuizOption{
					{Text: "Имбаланс между тенями свечей 1 и 3 при импульсе", Correct: true},
					{Text: "Уровень поддержки"},
					{Text: "Gap на открытии рынка"},
					{Text: "Любое большое тело свечи"},
				},
			},
			{
				Text: "OB + FVG в одной зоне — это...",
				Options: []QuizOption{
					{Text: "Максимальная зона интереса (POI)", Correct: true},
					{Text: "Слабый сигнал"},
					{Text: "Зона разворота без потенциала"},
					{Text: "Не имеет значения"},
				},
			},
		},
		"advanced_blocks_quiz": {
			{
				Text: "Breaker Block появляется, когда...",
				Options: []QuizOption{
					{Text: "Цена пробивает OB и он меняет роль на противоположную", Correct: true},
					{Text: "Цена касается OB и отскакивает"},
					{Text: "Формируется новый FVG"},
					{Text: "Меняется тренд на D1"},
				},
			},
			{
				Text: "Mitigation Block — это OB, который...",
				Options: []QuizOption{
					{Text: "Не пробит — цена митигировала его и продолжила тренд", Correct: true},
					{Text: "Пробит ценой"},
					{Text: "Стал Breaker"},
					{Text: "Находится в Premium зоне"},
				},
			},
		},
		"zones_quiz": {
			{
				Text: "Где Smart Money покупают?",
				Options: []QuizOption{
					{Text: "В Discount зоне (ниже 50% диапазона)", Correct: true},
					{Text: "В Premium зоне (выше 50%)"},
					{Text: "По новостям"},
					{Text: "Где угодно, если RSI перекуплен"},
				},
			},
			{
				Text: "OTE — это зона отката...",
				Options: []QuizOption{
					{Text: "62–79% от импульса (Фибо 61.8–78.6%)", Correct: true},
					{Text: "0–23.6%"},
					{Text: "100–161.8%"},
					{Text: "Ровно 50%"},
				},
			},
			{
				Text: "Лучшая Kill Zone для сделки с Forex по SMC — это...",
				Options: []QuizOption{
					{Text: "Лондонская (10:00–13:00 UTC+3)", Correct: true},
					{Text: "Азиатская (02:00–06:00)"},
					{Text: "Ночь воскресенья"},
					{Text: "Пятница после 18:00"},
				},
			},
		},
		"advanced_models_quiz": {
			{
				Text: "AMD расшифровывается как...",
				Options: []QuizOption{
					{Text: "Accumulation, Manipulation, Distribution", Correct: true},
					{Text: "Analysis, Market, Delivery"},
					{Text: "Ask, Mid, Demand"},
					{Text: "Average Market Deviation"},
				},
			},
			{
				Text: "Judas Swing в Po3 — это...",
				Options: []QuizOption{
					{Text: "Ложное движение против дневного тренда для сбора ликвидности", Correct: true},
					{Text: "Реальное движение дня"},
					{Text: "Азиатский диапазон"},
					{Text: "BOS на H4"},
				},
			},
		},
		"strategies_quiz": {
			{
				Text: "В ICT 2022 модели для Long нужен...",
				Options: []QuizOption{
					{Text: "Sweep SSL + CHoCH вверх + вход из FVG/OB", Correct: true},
					{Text: "Любой пробой максимума"},
					{Text: "RSI < 30"},
					{Text: "Случайный вход по настроению"},
				},
			},
			{
				Text: "Оптимальный риск на сделку для новичка...",
				Options: []QuizOption{
					{Text: "0.25–0.5% депозита", Correct: true},
					{Text: "5–10% депозита"},
					{Text: "Сколько не жалко"},
					{Text: "Фиксированные $100"},
				},
			},
			{
				Text: "Минимальный R:R для SMC сделки...",
				Options: []QuizOption{
					{Text: "1:2 (цель 1:3+)", Correct: true},
					{Text: "1:0.5"},
					{Text: "Любой"},
					{Text: "1:1"},
				},
			},
		},
	}
}

func defaultBadges() []Badge {
	return []Badge{
		{ID: BadgeFirstQuest, Title: "🎯 Первый шаг", Description: "Завершён первый квест курса."},
		{ID: BadgeQuizPerfect, Title: "🧠 Безупречный квиз", Description: "Квиз пройден без единой ошибки."},
		{ID: BadgeStreak7, Title: "🔥 Неделя без пропусков", Description: "7 активных дней подряд."},
		{ID: BadgeStreak30, Title: "💪 Железная воля", Description: "30 активных дней подряд."},
		{ID: BadgeBossSlayer, Title: "⚔️ Победитель боссов", Description: "Побеждён босс модуля."},
		{ID: BadgeCourseComplete, Title: "🏆 Архитектор пути", Description: "Завершены все модули курса."},
	}
}
